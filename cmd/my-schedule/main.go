package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/klabast/wb-services/my-schedule/internal/commands"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var indexHTML []byte

func main() {
	root := commands.NewRootCmd(commands.Assets{
		Static:    staticFiles,
		IndexHTML: indexHTML,
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
