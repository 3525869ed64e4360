package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"ndmgate/cmd/cli/command"
)

// 打印欢迎信息
func printWelcomeMessage() {
	fmt.Println("Welcome to the ndmgate CLI REPL! Type 'exit' to quit.")
	fmt.Println("Type 'help' to see the list of available commands.")
}

// 打印帮助信息
func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  parseone <file>  Parse a single KVN file and print the records.")
	fmt.Println("  types            List registered message types.")
	fmt.Println("  help             Show this help message.")
	fmt.Println("  exit             Exit the REPL.")
}

func main() {
	rootCmd := command.NewRootCommand()

	// 带参数时按普通 cli 执行, 否则进入 REPL
	if len(os.Args) > 1 {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	printWelcomeMessage()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := scanner.Text()

		if strings.ToLower(input) == "exit" {
			fmt.Println("Exiting ndmgate...")
			break
		}
		if strings.ToLower(input) == "help" {
			printHelp()
			continue
		}

		args := strings.Fields(input)
		if len(args) == 0 {
			continue
		}

		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err != nil {
			fmt.Println("Error:", err)
		}
	}
}
