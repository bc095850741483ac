package main

import "github.com/iliyamo/hotel-room-booking/internal/cli"

func main() {
	cli.Execute()
}
