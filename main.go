package main

import "github.com/copenhagensales/sms-inbox-notifier/cmd"

func main() {
	cmd.Execute()
}
