package store

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

// ciExact builds a case-insensitive full-string match for a user
// supplied value.
func ciExact(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

// ciContains builds a case-insensitive substring match.
func ciContains(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

func storageErr(op string, err error) error {
	return &models.StorageError{Op: op, Err: err}
}
