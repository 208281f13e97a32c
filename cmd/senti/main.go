package main

import "github.com/ZanzyTHEbar/sentiment-pipeline/senti/cli"

func main() {
	cli.Execute()
}
