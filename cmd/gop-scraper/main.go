package main

import (
	"gop-scraper/cmd/gop-scraper/commands"
	"gop-scraper/lib/util/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
