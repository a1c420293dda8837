package media

// StoredFile is an upload persisted under the storage root. ID is generated
// server-side and doubles as the file name.
type StoredFile struct {
	ID       string
	Path     string
	Verified Verified
}
