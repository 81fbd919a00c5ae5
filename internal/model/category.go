package model

// Category groups tasks by area (home, vehicle, finance, etc.).
type Category string

const (
	CategoryHome    Category = "home"
	CategoryVehicle Category = "vehicle"
	CategoryFinance Category = "finance"
	CategoryHealth  Category = "health"
	CategoryPet     Category = "pet"
	CategoryOther   Category = "other"
)

var categories = []Category{CategoryHome, CategoryVehicle, CategoryFinance, CategoryHealth, CategoryPet, CategoryOther}

// Categories lists every known category.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}
