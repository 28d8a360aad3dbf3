package database

import (
	"database/sql"
	"fmt"

	"github.com/example/factbot/pkg/models"
)

// CategoryRepository handles database operations for categories
type CategoryRepository struct {
	store *Store
}

// NewCategoryRepository creates a new repository instance
func NewCategoryRepository(store *Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

// GetAll returns all categories ordered by name
func (r *CategoryRepository) GetAll() ([]models.Category, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := db.Select(&categories, "SELECT * FROM categories ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to get categories: %v", err)
	}
	return categories, nil
}

// GetBySlug returns a category by its stable slug
func (r *CategoryRepository) GetBySlug(slug string) (*models.Category, error) {
	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	var category models.Category
	err = db.Get(&category, "SELECT * FROM categories WHERE slug = ?", slug)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by slug: %v", err)
	}
	return &category, nil
}
