package category

import (
	"errors"
	"strings"
)

var (
	ErrInvalidName    = errors.New("category name is required")
	ErrSelfParent     = errors.New("category cannot be its own parent")
	ErrNestingTooDeep = errors.New("subcategory parent must be a root category")
)

// Category is a node of the two-level catalog tree. Root categories have no
// parent; a subcategory points at a root.
type Category struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

// IsRoot reports whether the category sits at the top of the tree.
func (c Category) IsRoot() bool {
	return c.ParentID == nil || *c.ParentID == ""
}

// Node is a root category together with its direct children.
type Node struct {
	Category
	Subcategories []Category `json:"subcategories"`
}

// Fields are the writable attributes of a category.
type Fields struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

func (f Fields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrInvalidName
	}
	return nil
}

// CheckParent enforces the two-level convention for a category with the given
// id (empty for a new category) being attached under parent.
func CheckParent(id string, parent Category) error {
	if id != "" && parent.ID == id {
		return ErrSelfParent
	}
	if !parent.IsRoot() {
		return ErrNestingTooDeep
	}
	return nil
}
