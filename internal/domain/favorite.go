package domain

// Favorite is a location a user saved for later.
type Favorite struct {
	UserID   string
	Location Location
	SavedAt  string
}
