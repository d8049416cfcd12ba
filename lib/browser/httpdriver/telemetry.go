package httpdriver

import "gop-scraper/lib/telemetry"

var tracer = telemetry.Tracer("gop.lib.browser.httpdriver")
