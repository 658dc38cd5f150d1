package main

import "github.com/ariefcatur/go-farm-market/internal/cmd"

func main() {
	cmd.Execute()
}
