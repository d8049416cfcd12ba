package gop

import "gop-scraper/lib/telemetry"

var tracer = telemetry.Tracer("gop.lib.scrapers.gop")
var meter = telemetry.Meter("gop.lib.scrapers.gop")

var pagesVisited, _ = meter.Int64Counter("gop.pages_visited")
var recordsExtracted, _ = meter.Int64Counter("gop.records_extracted")
var rowsSkipped, _ = meter.Int64Counter("gop.rows_skipped")
var documentsDownloaded, _ = meter.Int64Counter("gop.documents_downloaded")
