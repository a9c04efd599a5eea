package paging

import (
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParse(t *testing.T) {
	id := primitive.NewObjectID()
	tests := []struct {
		name      string
		target    string
		wantLimit int
		wantAfter bool
	}{
		{"defaults", "/spots", PageSize, false},
		{"limit", "/spots?limit=10", 10, false},
		{"limit capped", "/spots?limit=100000", MaxPageSize, false},
		{"bad limit", "/spots?limit=-3", PageSize, false},
		{"after", "/spots?after=" + id.Hex(), PageSize, true},
		{"bad after", "/spots?after=zzz", PageSize, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(httptest.NewRequest("GET", tt.target, nil))
			if p.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", p.Limit, tt.wantLimit)
			}
			if (p.After != nil) != tt.wantAfter {
				t.Errorf("After = %v, want set=%v", p.After, tt.wantAfter)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	base := bson.M{"visibility": "public"}
	if got := First().Filter(base); len(got) != 1 {
		t.Errorf("first page filter = %v", got)
	}

	id := primitive.NewObjectID()
	got := Page{Limit: 5, After: &id}.Filter(base)
	cond, ok := got["_id"].(bson.M)
	if !ok || cond["$lt"] != id {
		t.Errorf("keyset condition missing: %v", got)
	}
	if _, touched := base["_id"]; touched {
		t.Error("Filter must not modify base")
	}
}

func TestFindOptions_LookAhead(t *testing.T) {
	opts := Page{Limit: 7}.FindOptions()
	if opts.Limit == nil || *opts.Limit != 8 {
		t.Errorf("limit = %v, want 8", opts.Limit)
	}
}

func TestTrimAndNext(t *testing.T) {
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	p := Page{Limit: 2}

	rows := append([]primitive.ObjectID(nil), ids...)
	more := Trim(p, &rows)
	if !more || len(rows) != 2 {
		t.Fatalf("Trim = %v, %d rows", more, len(rows))
	}
	if next := Next(rows, more, func(id primitive.ObjectID) primitive.ObjectID { return id }); next != ids[1].Hex() {
		t.Errorf("Next = %q, want %q", next, ids[1].Hex())
	}

	short := ids[:1]
	if Trim(p, &short) {
		t.Error("short page should report no more")
	}
	if next := Next(short, false, func(id primitive.ObjectID) primitive.ObjectID { return id }); next != "" {
		t.Errorf("Next on last page = %q", next)
	}
}
