package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) > 1 {
		cmd := os.Args[1]
		switch cmd {
		case "train":
			if err := RunTrainCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "encode":
			if err := RunEncodeCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
			printUsage()
			os.Exit(1)
		}
	}

	// Default: show help
	printUsage()
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run . [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train       Train a skip-thought encoder on a directory of books")
	fmt.Println("  encode      Print the thought vector of every sentence of a file")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  go run . train -dataset_path=./books -embeddings_path=./vectors.txt -model_name=books")
	fmt.Println("  go run . train -model_name=books -embeddings_path=./vectors.txt -encode=sentences.txt")
	fmt.Println("  go run . encode -model_name=books -embeddings_path=./vectors.txt sentences.txt")
	fmt.Println("  go run . encode -model_name=books -embeddings_path=./vectors.txt -interactive")
	fmt.Println()
}
