package main

import "github.com/frahmantamala/expense-approval/cmd"

func main() {
	cmd.Execute()
}
