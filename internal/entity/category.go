package entity

// Category is the coarse grouping every place belongs to.
type Category string

const (
	CategoryFood     Category = "Food"
	CategoryHealth   Category = "Health"
	CategoryBeauty   Category = "Beauty"
	CategoryShopping Category = "Shopping"
	CategoryServices Category = "Services"

	// CategoryAll is only valid as a filter value.
	CategoryAll Category = "All"
)
