// Command tinyapp runs the TinyApp URL shortener: the HTML pages, the JSON
// API and, when GRPC_ADDRESS is set, the gRPC health service.
package main

import (
	"fmt"
	"log"

	"github.com/patric-chuzhbe/tinyapp/internal/app"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func printBuildInfo() {
	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

func main() {
	printBuildInfo()

	tinyApp, err := app.New()
	if err != nil {
		log.Fatal(err)
	}
	defer tinyApp.Close()

	if err := tinyApp.Run(); err != nil {
		log.Println(err)
	}
}
