package main

import "github.com/thereayou/telega-lite/cmd/server"

func main() {
	server.NewServer().Run()
}
