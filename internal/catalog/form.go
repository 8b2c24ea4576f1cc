package catalog

import (
	"fmt"
	"mime/multipart"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
)

var (
	profileKey = regexp.MustCompile(`^stuff_management\[(\w+)\]$`)
	imageKey   = regexp.MustCompile(`^equipment_images\[(\d+)\]\[(\w+)\]$`)
)

// ItemForm is the typed form of a nested multipart item payload. Fields
// absent from the form stay nil.
type ItemForm struct {
	Name                *string
	ShortDescription    *string
	DetailedDescription *string
	Brand               *string
	Location            *string
	RentalLocation      *string
	State               *string
	Status              *enums.ItemStatus
	PricePerDay         *decimal.Decimal
	CategoryID          *uuid.UUID
	OwnerID             *string
	Profile             *ProfileInput
	Images              []ImageInput
}

// ParseItemForm reads plain item fields plus the nested
// stuff_management[field] and equipment_images[idx][field] keys. Uploaded
// files contribute their filename as the stored key. Images keep the order of
// their explicit position, falling back to the form index.
func ParseItemForm(form *multipart.Form) (ItemForm, error) {
	var out ItemForm
	if form == nil {
		return out, nil
	}
	fields := map[string]string{}
	value := func(key string) *string {
		if vals, ok := form.Value[key]; ok && len(vals) > 0 {
			v := strings.TrimSpace(vals[0])
			return &v
		}
		return nil
	}

	out.Name = value("name")
	if out.Name == nil {
		out.Name = value("stuffname")
	}
	out.ShortDescription = value("short_description")
	out.DetailedDescription = value("detailed_description")
	out.Brand = value("brand")
	out.Location = value("location")
	out.RentalLocation = value("rental_location")
	out.State = value("state")
	out.OwnerID = value("user")

	if raw := value("status"); raw != nil && *raw != "" {
		status, err := enums.ParseItemStatus(*raw)
		if err != nil {
			fields["status"] = "must be draft or published"
		} else {
			out.Status = &status
		}
	}
	if raw := value("price_per_day"); raw != nil {
		price, err := decimal.NewFromString(*raw)
		if err != nil {
			fields["price_per_day"] = "must be a number"
		} else {
			out.PricePerDay = &price
		}
	}
	if raw := value("category"); raw != nil && *raw != "" {
		id, err := uuid.Parse(*raw)
		if err != nil {
			fields["category"] = "must be a uuid"
		} else {
			out.CategoryID = &id
		}
	}

	profile, err := parseProfileFields(form, fields)
	if err != nil {
		return out, err
	}
	out.Profile = profile

	images, err := parseImageFields(form, fields)
	if err != nil {
		return out, err
	}
	out.Images = images

	if len(fields) > 0 {
		return out, pkgerrors.Validation("invalid item form", fields)
	}
	return out, nil
}

func parseProfileFields(form *multipart.Form, fields map[string]string) (*ProfileInput, error) {
	var profile ProfileInput
	seen := false
	for key, vals := range form.Value {
		m := profileKey.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		seen = true
		v := strings.TrimSpace(vals[0])
		errKey := "stuff_management." + m[1]
		switch m[1] {
		case "name":
			profile.Name = &v
		case "condition":
			profile.Condition = &v
		case "rental_location":
			profile.RentalLocation = &v
		case "rental_zone":
			profile.RentalZone = &v
		case "location":
			profile.Location = &v
		case "contract_required", "contract_document_key":
			profile.ContractDocumentKey = &v
		case "availability":
			if v == "" {
				continue
			}
			a, err := enums.ParseAvailability(v)
			if err != nil {
				fields[errKey] = "must be available or unavailable"
				continue
			}
			profile.Availability = &a
		case "deposit":
			if v == "" {
				continue
			}
			d, err := decimal.NewFromString(v)
			if err != nil {
				fields[errKey] = "must be a number"
				continue
			}
			profile.Deposit = &d
		case "last_maintenance":
			if v == "" {
				continue
			}
			t, err := time.Parse(time.DateOnly, v)
			if err != nil {
				fields[errKey] = "must be YYYY-MM-DD"
				continue
			}
			profile.LastMaintenance = &t
		default:
			fields[errKey] = "unknown field"
		}
	}
	for key, files := range form.File {
		m := profileKey.FindStringSubmatch(key)
		if m == nil || len(files) == 0 {
			continue
		}
		if m[1] != "contract_required" && m[1] != "contract_document_key" {
			fields["stuff_management."+m[1]] = "unexpected file"
			continue
		}
		seen = true
		name := files[0].Filename
		profile.ContractDocumentKey = &name
	}
	if !seen {
		return nil, nil
	}
	return &profile, nil
}

type imageDraft struct {
	index    int
	url      string
	alt      string
	position *int
}

func parseImageFields(form *multipart.Form, fields map[string]string) ([]ImageInput, error) {
	drafts := map[int]*imageDraft{}
	draft := func(idx int) *imageDraft {
		d, ok := drafts[idx]
		if !ok {
			d = &imageDraft{index: idx}
			drafts[idx] = d
		}
		return d
	}

	for key, vals := range form.Value {
		m := imageKey.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("image index %q: %w", m[1], err)
		}
		v := strings.TrimSpace(vals[0])
		d := draft(idx)
		errKey := fmt.Sprintf("equipment_images.%d.%s", idx, m[2])
		switch m[2] {
		case "url":
			d.url = v
		case "alt":
			d.alt = v
		case "position":
			pos, err := strconv.Atoi(v)
			if err != nil || pos < 0 {
				fields[errKey] = "must be a non-negative integer"
				continue
			}
			d.position = &pos
		default:
			fields[errKey] = "unknown field"
		}
	}
	for key, files := range form.File {
		m := imageKey.FindStringSubmatch(key)
		if m == nil || len(files) == 0 || m[2] != "url" {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("image index %q: %w", m[1], err)
		}
		draft(idx).url = files[0].Filename
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	ordered := make([]*imageDraft, 0, len(drafts))
	for _, d := range drafts {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })

	images := make([]ImageInput, 0, len(ordered))
	for _, d := range ordered {
		if d.url == "" {
			fields[fmt.Sprintf("equipment_images.%d.url", d.index)] = "is required"
			continue
		}
		pos := d.index
		if d.position != nil {
			pos = *d.position
		}
		images = append(images, ImageInput{URL: d.url, Alt: d.alt, Position: &pos})
	}
	sort.SliceStable(images, func(i, j int) bool { return *images[i].Position < *images[j].Position })
	return images, nil
}

// CreateInput turns a parsed form into a create request.
func (f ItemForm) CreateInput() ItemInput {
	in := ItemInput{
		Brand:      f.Brand,
		Location:   f.Location,
		CategoryID: f.CategoryID,
		OwnerID:    f.OwnerID,
		Profile:    f.Profile,
		Images:     f.Images,
	}
	in.Name = deref(f.Name)
	in.ShortDescription = deref(f.ShortDescription)
	in.DetailedDescription = deref(f.DetailedDescription)
	in.RentalLocation = deref(f.RentalLocation)
	in.State = deref(f.State)
	if f.Status != nil {
		in.Status = *f.Status
	}
	if f.PricePerDay != nil {
		in.PricePerDay = *f.PricePerDay
	}
	return in
}

// Patch turns a parsed form into an update request.
func (f ItemForm) Patch() ItemPatch {
	return ItemPatch{
		Name:                f.Name,
		ShortDescription:    f.ShortDescription,
		DetailedDescription: f.DetailedDescription,
		Brand:               f.Brand,
		Location:            f.Location,
		RentalLocation:      f.RentalLocation,
		State:               f.State,
		PricePerDay:         f.PricePerDay,
		CategoryID:          f.CategoryID,
		OwnerID:             f.OwnerID,
		Profile:             f.Profile,
		Images:              f.Images,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
