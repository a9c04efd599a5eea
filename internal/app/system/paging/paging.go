// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows in a listing.
const PageSize = 50

// MaxPageSize caps ?limit=.
const MaxPageSize = 200

// Page is a newest-first keyset window over _id. After is the id of the
// last row of the previous page.
type Page struct {
	Limit int
	After *primitive.ObjectID
}

// First is the first page at the default size.
func First() Page { return Page{Limit: PageSize} }

// Parse reads ?limit= and ?after= from the request. Bad values fall back
// to the defaults.
func Parse(r *http.Request) Page {
	p := First()
	if s := query.Get(r, "limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.Limit = min(n, MaxPageSize)
		}
	}
	if s := query.Get(r, "after"); s != "" {
		if id, err := primitive.ObjectIDFromHex(s); err == nil {
			p.After = &id
		}
	}
	return p
}

func (p Page) size() int {
	if p.Limit <= 0 {
		return PageSize
	}
	return p.Limit
}

// Filter adds the keyset condition to base. base is not modified.
func (p Page) Filter(base bson.M) bson.M {
	out := bson.M{}
	for k, v := range base {
		out[k] = v
	}
	if p.After != nil {
		out["_id"] = bson.M{"$lt": *p.After}
	}
	return out
}

// FindOptions sorts newest first and fetches one extra row for look-ahead.
func (p Page) FindOptions() *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(p.size() + 1))
}

// Trim drops the look-ahead row and reports whether another page exists.
func Trim[T any](p Page, rows *[]T) bool {
	if len(*rows) > p.size() {
		*rows = (*rows)[:p.size()]
		return true
	}
	return false
}

// Next returns the ?after= value for the following page, or "" when
// there is none.
func Next[T any](rows []T, hasMore bool, idFn func(T) primitive.ObjectID) string {
	if !hasMore || len(rows) == 0 {
		return ""
	}
	return idFn(rows[len(rows)-1]).Hex()
}
