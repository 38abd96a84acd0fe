package main

import "github.com/deploymenttheory/go-apkverity/cmd"

func main() {
	cmd.Execute()
}
