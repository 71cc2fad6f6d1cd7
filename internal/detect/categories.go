package detect

// classCategories maps detector class names to shelf product categories.
// A production deployment would train a custom model on its own catalogue;
// this table covers the common COCO classes seen on retail shelves.
var classCategories = map[string]string{
	"bottle":     "beverage",
	"cup":        "cup",
	"bowl":       "bowl",
	"banana":     "fruit",
	"apple":      "fruit",
	"orange":     "fruit",
	"sandwich":   "food",
	"pizza":      "food",
	"cake":       "bakery",
	"book":       "product",
	"cell phone": "electronics",
}

// CategoryFor returns the product category for a detector class name, or
// "unknown" for unmapped classes.
func CategoryFor(className string) string {
	if c, ok := classCategories[className]; ok {
		return c
	}
	return "unknown"
}
