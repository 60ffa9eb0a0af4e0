package main

import (
	"kontomanager/cmd/kontomanager/commands"
	"kontomanager/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
