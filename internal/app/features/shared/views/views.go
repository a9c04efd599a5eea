// internal/app/features/shared/views/views.go

// Package views builds the JSON shapes for maps and spots that several
// features return. Everything here is read-only; access decisions come
// from policy/access.
package views

import (
	"context"
	"time"

	"github.com/dalemusser/flyspot/internal/app/policy/access"
	ratingstore "github.com/dalemusser/flyspot/internal/app/store/ratings"
	spotimagestore "github.com/dalemusser/flyspot/internal/app/store/spotimages"
	spotstore "github.com/dalemusser/flyspot/internal/app/store/spots"
	tagstore "github.com/dalemusser/flyspot/internal/app/store/tags"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// RoleOwner is reported as the actor's role on maps they own.
const RoleOwner = "OWNER"

// Map is a map as seen by one actor.
type Map struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	OwnerID     string    `json:"owner_id"`
	OwnerName   string    `json:"owner_name,omitempty"`
	Role        string    `json:"role"`
	LinkPublic  bool      `json:"link_public"`
	PublicPath  string    `json:"public_path,omitempty"`
	CanManage   bool      `json:"can_manage"`
	CanAddSpots bool      `json:"can_add_spots"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Badge is the short form of a map shown on a spot.
type Badge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Tag is a tag name with its id.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Image is one spot image.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Spot is the list form of a spot.
type Spot struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Latitude   float64             `json:"latitude"`
	Longitude  float64             `json:"longitude"`
	OwnerID    string              `json:"owner_id"`
	OwnerName  string              `json:"owner_name,omitempty"`
	Visibility models.Visibility   `json:"visibility"`
	ImageURL   string              `json:"image_url,omitempty"`
	Tags       []Tag               `json:"tags"`
	Maps       []Badge             `json:"maps"`
	Rating     ratingstore.Summary `json:"rating"`
	CreatedAt  time.Time           `json:"created_at"`
}

// SpotDetail adds the full description, all images and the actor's
// relationship to the spot.
type SpotDetail struct {
	Spot
	Description  string  `json:"description"`
	PrimaryMapID string  `json:"primary_map_id,omitempty"`
	Images       []Image `json:"images"`
	MyRating     int     `json:"my_rating,omitempty"`
	CanEdit      bool    `json:"can_edit"`
	CanRate      bool    `json:"can_rate"`
}

// Builder assembles views from the stores.
type Builder struct {
	spots   *spotstore.Store
	images  *spotimagestore.Store
	tags    *tagstore.Store
	ratings *ratingstore.Store
	users   *userstore.Store
	access  *access.Loader
}

func NewBuilder(db *mongo.Database) *Builder {
	return &Builder{
		spots:   spotstore.New(db),
		images:  spotimagestore.New(db),
		tags:    tagstore.New(db),
		ratings: ratingstore.New(db),
		users:   userstore.New(db),
		access:  access.NewLoader(db),
	}
}

// MapFor renders m for actor. Owners see Role OWNER and the public path.
func MapFor(m models.Map, f access.MapFacts, actor access.Actor) Map {
	v := Map{
		ID:         m.ID.Hex(),
		Name:       m.Name,
		Icon:       m.Icon,
		OwnerID:    m.OwnerID.Hex(),
		Role:       f.ShareRole,
		LinkPublic: m.LinkPublic,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if v.Icon == "" {
		v.Icon = models.DefaultMapIcon
	}
	v.CanManage = access.Evaluate(actor, f, access.MapManage).Allowed
	v.CanAddSpots = access.Evaluate(actor, f, access.MapAddSpot).Allowed
	if v.CanManage {
		v.Role = RoleOwner
		if m.PublicToken != "" {
			v.PublicPath = "/m/" + m.PublicToken
		}
	}
	return v
}

// Maps renders maps with owner names filled in.
func (b *Builder) Maps(ctx context.Context, actor access.Actor, maps []models.Map, facts map[primitive.ObjectID]access.MapFacts) ([]Map, error) {
	owners := make([]primitive.ObjectID, 0, len(maps))
	for _, m := range maps {
		owners = append(owners, m.OwnerID)
	}
	names, err := b.users.NamesByID(ctx, owners)
	if err != nil {
		return nil, err
	}
	out := make([]Map, 0, len(maps))
	for _, m := range maps {
		v := MapFor(m, facts[m.ID], actor)
		v.OwnerName = names[m.OwnerID]
		out = append(out, v)
	}
	return out, nil
}

// Spots renders the list form of spots. Map badges only include maps the
// actor can read; token is the public link the request came through, if
// any.
func (b *Builder) Spots(ctx context.Context, actor access.Actor, spots []models.Spot, token string) ([]Spot, error) {
	out := make([]Spot, 0, len(spots))
	if len(spots) == 0 {
		return out, nil
	}

	ids := make([]primitive.ObjectID, 0, len(spots))
	owners := make([]primitive.ObjectID, 0, len(spots))
	var tagIDs []primitive.ObjectID
	for _, sp := range spots {
		ids = append(ids, sp.ID)
		owners = append(owners, sp.OwnerID)
		tagIDs = append(tagIDs, sp.TagIDs...)
	}

	mapIDs, err := b.spots.MapIDsBySpot(ctx, spots)
	if err != nil {
		return nil, err
	}
	var allMaps []primitive.ObjectID
	for _, l := range mapIDs {
		allMaps = append(allMaps, l...)
	}
	maps, facts, err := b.access.Lookup(ctx, actor, allMaps, token)
	if err != nil {
		return nil, err
	}
	primary, err := b.images.Primary(ctx, ids)
	if err != nil {
		return nil, err
	}
	tags, err := b.tagIndex(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	ratings, err := b.ratings.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	names, err := b.users.NamesByID(ctx, owners)
	if err != nil {
		return nil, err
	}

	for _, sp := range spots {
		v := Spot{
			ID:         sp.ID.Hex(),
			Title:      sp.Title,
			Latitude:   sp.Latitude,
			Longitude:  sp.Longitude,
			OwnerID:    sp.OwnerID.Hex(),
			OwnerName:  names[sp.OwnerID],
			Visibility: sp.Visibility,
			ImageURL:   primary[sp.ID].URL,
			Tags:       []Tag{},
			Maps:       []Badge{},
			Rating:     ratings[sp.ID],
			CreatedAt:  sp.CreatedAt,
		}
		for _, tid := range sp.TagIDs {
			if t, ok := tags[tid]; ok {
				v.Tags = append(v.Tags, t)
			}
		}
		for _, mid := range mapIDs[sp.ID] {
			m, ok := maps[mid]
			if !ok || !access.Evaluate(actor, facts[mid], access.MapRead).Allowed {
				continue
			}
			v.Maps = append(v.Maps, Badge{ID: m.ID.Hex(), Name: m.Name, Icon: m.Icon})
		}
		out = append(out, v)
	}
	return out, nil
}

// Detail renders one spot in full. f must be the facts the caller used
// to authorize the read.
func (b *Builder) Detail(ctx context.Context, actor access.Actor, sp models.Spot, f access.SpotFacts, token string) (SpotDetail, error) {
	cards, err := b.Spots(ctx, actor, []models.Spot{sp}, token)
	if err != nil {
		return SpotDetail{}, err
	}
	imgs, err := b.images.ListBySpot(ctx, sp.ID)
	if err != nil {
		return SpotDetail{}, err
	}
	d := SpotDetail{
		Spot:        cards[0],
		Description: sp.Description,
		Images:      make([]Image, 0, len(imgs)),
		CanEdit:     access.Evaluate(actor, f, access.SpotWrite).Allowed,
		CanRate:     access.Evaluate(actor, f, access.SpotRate).Allowed,
	}
	if sp.MapID != nil {
		d.PrimaryMapID = sp.MapID.Hex()
	}
	for _, img := range imgs {
		d.Images = append(d.Images, Image{ID: img.ID.Hex(), URL: img.URL})
	}
	if !actor.Anonymous() {
		mine, err := b.ratings.Get(ctx, sp.ID, actor.UserID)
		if err != nil {
			return SpotDetail{}, err
		}
		d.MyRating = mine
	}
	return d, nil
}

func (b *Builder) tagIndex(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]Tag, error) {
	out := map[primitive.ObjectID]Tag{}
	if len(ids) == 0 {
		return out, nil
	}
	tags, err := b.tags.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		out[t.ID] = Tag{ID: t.ID.Hex(), Name: t.Name}
	}
	return out, nil
}

// Tags renders a tag list.
func Tags(in []models.Tag) []Tag {
	out := make([]Tag, 0, len(in))
	for _, t := range in {
		out = append(out, Tag{ID: t.ID.Hex(), Name: t.Name})
	}
	return out
}
