package main

import (
	"github.com/eleven-am/interview-coach/internal/bootstrap"
)

func main() {
	bootstrap.Run()
}
