/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import (
	"github.com/Saurav134/Agentic-Project-Builder/cmd"
	"github.com/Saurav134/Agentic-Project-Builder/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
