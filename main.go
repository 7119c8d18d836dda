package main

import "github.com/immutable/ts-immutable-sdk-sub011/cmd"

func main() {
	cmd.Execute()
}
