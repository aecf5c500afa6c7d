package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     Money     `json:"price"`
	Stock     int       `json:"stock"`
	Brand     *string   `json:"brand"`
	ImageURL  *string   `json:"imageUrl"`
	VendorID  uuid.UUID `json:"vendorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Recommendation struct {
	Product
	SimilarityScore int `json:"similarityScore"`
}
