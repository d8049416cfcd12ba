package gop

// Record is one row of the "Mis Bandejas" table.
type Record struct {
	// nro_sistema, unique per case, keys the download directory
	SystemNumber string
	// expediente
	FileNumber   string
	Status       string
	Professional string
	Nomenclature string
	CurrentTray  string
	EntryDate    string
	AssignedUser string
	// absolute url of the record's detail view, empty if the row has none
	DetailUrl string
	// set by the document fetcher on a successful download
	DocumentPath string
}
