package main

import "tilefetch/pkg/logger"

func main() {
	logger.Version = version
	Execute()
}
