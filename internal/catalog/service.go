package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentwise/rentwise-backend/pkg/db"
	"github.com/rentwise/rentwise-backend/pkg/db/models"
	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
	"github.com/rentwise/rentwise-backend/pkg/logger"
	"github.com/rentwise/rentwise-backend/pkg/pagination"
)

const (
	maxItemNameLen  = 100
	maxShortDescLen = 100
)

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	DB     *db.Client
	Repo   *Repository
	Logger *logger.Logger
	Now    func() time.Time
}

// Service manages items, categories, management profiles, images and
// wishlists.
type Service interface {
	CreateItem(ctx context.Context, input ItemInput) (*models.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, patch ItemPatch) (*models.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.ItemStatus) (*models.Item, error)

	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	RenameCategory(ctx context.Context, id uuid.UUID, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProfile(ctx context.Context, input ProfileInput) (*models.ItemManagementProfile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.ItemManagementProfile, error)
	ListProfiles(ctx context.Context, params pagination.Params) (pagination.Page[models.ItemManagementProfile], error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*models.ItemManagementProfile, error)
	SetAvailability(ctx context.Context, id uuid.UUID, availability enums.Availability) (*models.ItemManagementProfile, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error

	ListImages(ctx context.Context, itemID uuid.UUID) ([]models.ItemImage, error)
	GetImage(ctx context.Context, id uuid.UUID) (*models.ItemImage, error)
	AddImage(ctx context.Context, itemID uuid.UUID, input ImageInput) (*models.ItemImage, error)
	UpdateImage(ctx context.Context, id uuid.UUID, patch ImagePatch) (*models.ItemImage, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error

	AddToWishlist(ctx context.Context, userID string, itemID uuid.UUID) error
	RemoveFromWishlist(ctx context.Context, userID string, itemID uuid.UUID) error
	ListWishlist(ctx context.Context, userID string, params pagination.Params) (pagination.Page[models.WishlistEntry], error)
}

type service struct {
	db   *db.Client
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Repo == nil {
		params.Repo = NewRepository(params.DB.DB())
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{db: params.DB, repo: params.Repo, logg: params.Logger, now: params.Now}, nil
}

func (s *service) CreateItem(ctx context.Context, input ItemInput) (*models.Item, error) {
	fields := map[string]string{}
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		fields["name"] = "is required"
	case len(name) > maxItemNameLen:
		fields["name"] = fmt.Sprintf("must be at most %d characters", maxItemNameLen)
	}
	if len(input.ShortDescription) > maxShortDescLen {
		fields["short_description"] = fmt.Sprintf("must be at most %d characters", maxShortDescLen)
	}
	if input.PricePerDay.IsNegative() {
		fields["price_per_day"] = "must be greater than or equal to 0"
	}
	status := input.Status
	if status == "" {
		status = enums.ItemStatusDraft
	}
	if !status.IsValid() {
		fields["status"] = "must be draft or published"
	}
	if input.Profile != nil && input.ManagementProfileID != nil {
		fields["stuff_management"] = "cannot both reference and create a profile"
	}
	validateImages(input.Images, fields)
	if input.Profile != nil {
		validateProfile(*input.Profile, true, fields)
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid item", fields)
	}

	item := &models.Item{
		Name:                name,
		ShortDescription:    strings.TrimSpace(input.ShortDescription),
		DetailedDescription: input.DetailedDescription,
		Brand:               input.Brand,
		Location:            input.Location,
		RentalLocation:      input.RentalLocation,
		State:               defaultString(input.State, "open"),
		Status:              status,
		PricePerDay:         input.PricePerDay,
		CategoryID:          input.CategoryID,
		ManagementProfileID: input.ManagementProfileID,
		OwnerID:             input.OwnerID,
		CreatedAt:           s.now().UTC(),
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.checkRefsTx(ctx, tx, item.CategoryID, item.ManagementProfileID); err != nil {
			return err
		}
		if input.Profile != nil {
			profile := newProfile(*input.Profile, s.now())
			if err := s.repo.CreateProfileTx(tx, profile); err != nil {
				return err
			}
			item.ManagementProfileID = &profile.ID
		}
		if err := s.repo.CreateItemTx(tx, item); err != nil {
			return err
		}
		return s.repo.ReplaceImagesTx(tx, item.ID, buildImages(item.ID, input.Images))
	})
	if err != nil {
		return nil, s.mapErr(ctx, err, "create item")
	}
	return s.GetItem(ctx, item.ID)
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindItem(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "item")
	}
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, patch ItemPatch) (*models.Item, error) {
	fields := map[string]string{}
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		switch {
		case name == "":
			fields["name"] = "is required"
		case len(name) > maxItemNameLen:
			fields["name"] = fmt.Sprintf("must be at most %d characters", maxItemNameLen)
		}
		updates["name"] = name
	}
	if patch.ShortDescription != nil {
		if len(*patch.ShortDescription) > maxShortDescLen {
			fields["short_description"] = fmt.Sprintf("must be at most %d characters", maxShortDescLen)
		}
		updates["short_description"] = strings.TrimSpace(*patch.ShortDescription)
	}
	if patch.DetailedDescription != nil {
		updates["detailed_description"] = *patch.DetailedDescription
	}
	if patch.Brand != nil {
		updates["brand"] = *patch.Brand
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.RentalLocation != nil {
		updates["rental_location"] = *patch.RentalLocation
	}
	if patch.State != nil {
		updates["state"] = *patch.State
	}
	if patch.PricePerDay != nil {
		if patch.PricePerDay.IsNegative() {
			fields["price_per_day"] = "must be greater than or equal to 0"
		}
		updates["price_per_day"] = *patch.PricePerDay
	}
	switch {
	case patch.ClearCategory:
		updates["category_id"] = nil
	case patch.CategoryID != nil:
		updates["category_id"] = *patch.CategoryID
	}
	if patch.OwnerID != nil {
		updates["owner_id"] = *patch.OwnerID
	}
	validateImages(patch.Images, fields)
	if patch.Profile != nil {
		validateProfile(*patch.Profile, false, fields)
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid item", fields)
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.repo.FindItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.checkRefsTx(ctx, tx, patch.CategoryID, nil); err != nil {
			return err
		}
		if patch.Profile != nil {
			if item.ManagementProfileID != nil {
				if err := s.repo.UpdateProfileTx(tx, *item.ManagementProfileID, profileUpdates(*patch.Profile)); err != nil {
					return err
				}
			} else {
				profile := newProfile(*patch.Profile, s.now())
				if profile.Name == "" {
					profile.Name = item.Name
				}
				if err := s.repo.CreateProfileTx(tx, profile); err != nil {
					return err
				}
				updates["management_profile_id"] = profile.ID
			}
		}
		if err := s.repo.UpdateItemTx(tx, id, updates); err != nil {
			return err
		}
		if patch.Images != nil {
			return s.repo.ReplaceImagesTx(tx, id, buildImages(id, patch.Images))
		}
		return nil
	})
	if err != nil {
		return nil, s.mapErr(ctx, err, "update item")
	}
	return s.GetItem(ctx, id)
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.DeleteItem(ctx, id)
	if err != nil {
		return s.mapErr(ctx, err, "delete item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return nil
}

// SetStatus moves an item between draft and published. Repeating the
// current status is a no-op.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status enums.ItemStatus) (*models.Item, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Validation("invalid status", map[string]string{"status": "must be draft or published"})
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindItem(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.UpdateItemTx(tx, id, map[string]any{"status": status})
	})
	if err != nil {
		return nil, s.mapErr(ctx, err, "set item status")
	}
	return s.GetItem(ctx, id)
}

func (s *service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.Validation("invalid category", map[string]string{"name": "is required"})
	}
	category := &models.Category{Name: name, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, s.mapErr(ctx, err, "create category")
	}
	return category, nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category")
	}
	return category, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, err, "list categories")
	}
	return categories, nil
}

func (s *service) RenameCategory(ctx context.Context, id uuid.UUID, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.Validation("invalid category", map[string]string{"name": "is required"})
	}
	if _, err := s.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.RenameCategory(ctx, id, name); err != nil {
		return nil, s.mapErr(ctx, err, "rename category")
	}
	return s.GetCategory(ctx, id)
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		return s.mapErr(ctx, err, "delete category")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func (s *service) CreateProfile(ctx context.Context, input ProfileInput) (*models.ItemManagementProfile, error) {
	fields := map[string]string{}
	validateProfile(input, true, fields)
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid management profile", fields)
	}
	profile := newProfile(input, s.now())
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.CreateProfileTx(tx, profile)
	}); err != nil {
		return nil, s.mapErr(ctx, err, "create management profile")
	}
	return profile, nil
}

func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*models.ItemManagementProfile, error) {
	profile, err := s.repo.FindProfile(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "management profile")
	}
	return profile, nil
}

func (s *service) ListProfiles(ctx context.Context, params pagination.Params) (pagination.Page[models.ItemManagementProfile], error) {
	profiles, err := s.repo.ListProfiles(ctx, params)
	if err != nil {
		return pagination.Page[models.ItemManagementProfile]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list management profiles")
	}
	return pagination.Paginate(profiles, params.Limit, func(p models.ItemManagementProfile) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*models.ItemManagementProfile, error) {
	fields := map[string]string{}
	validateProfile(input, false, fields)
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid management profile", fields)
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindProfile(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.UpdateProfileTx(tx, id, profileUpdates(input))
	})
	if err != nil {
		return nil, s.mapErr(ctx, err, "update management profile")
	}
	return s.GetProfile(ctx, id)
}

func (s *service) SetAvailability(ctx context.Context, id uuid.UUID, availability enums.Availability) (*models.ItemManagementProfile, error) {
	if !availability.IsValid() {
		return nil, pkgerrors.Validation("invalid availability", map[string]string{"availability": "must be available or unavailable"})
	}
	return s.UpdateProfile(ctx, id, ProfileInput{Availability: &availability})
}

func (s *service) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.DeleteProfile(ctx, id)
	if err != nil {
		return s.mapErr(ctx, err, "delete management profile")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "management profile not found")
	}
	return nil
}

func (s *service) ListImages(ctx context.Context, itemID uuid.UUID) ([]models.ItemImage, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	images, err := s.repo.ListImages(ctx, itemID)
	if err != nil {
		return nil, s.mapErr(ctx, err, "list images")
	}
	return images, nil
}

func (s *service) GetImage(ctx context.Context, id uuid.UUID) (*models.ItemImage, error) {
	image, err := s.repo.FindImage(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "image")
	}
	return image, nil
}

func (s *service) AddImage(ctx context.Context, itemID uuid.UUID, input ImageInput) (*models.ItemImage, error) {
	fields := map[string]string{}
	validateImages([]ImageInput{input}, fields)
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid image", fields)
	}
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	image := buildImages(itemID, []ImageInput{input})[0]
	if err := s.repo.CreateImage(ctx, &image); err != nil {
		return nil, s.mapErr(ctx, err, "add image")
	}
	return &image, nil
}

func (s *service) UpdateImage(ctx context.Context, id uuid.UUID, patch ImagePatch) (*models.ItemImage, error) {
	updates := map[string]any{}
	fields := map[string]string{}
	if patch.URL != nil {
		if strings.TrimSpace(*patch.URL) == "" {
			fields["url"] = "is required"
		}
		updates["url"] = strings.TrimSpace(*patch.URL)
	}
	if patch.Alt != nil {
		updates["alt"] = *patch.Alt
	}
	if patch.Position != nil {
		if *patch.Position < 0 {
			fields["position"] = "must be a non-negative integer"
		}
		updates["position"] = *patch.Position
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid image", fields)
	}
	if _, err := s.GetImage(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateImage(ctx, id, updates); err != nil {
			return nil, s.mapErr(ctx, err, "update image")
		}
	}
	return s.GetImage(ctx, id)
}

func (s *service) DeleteImage(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.DeleteImage(ctx, id)
	if err != nil {
		return s.mapErr(ctx, err, "delete image")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}
	return nil
}

// AddToWishlist is idempotent per (user, item).
func (s *service) AddToWishlist(ctx context.Context, userID string, itemID uuid.UUID) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return pkgerrors.Validation("invalid wishlist entry", map[string]string{"user": "is required"})
	}
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return err
	}
	entry := &models.WishlistEntry{ItemID: itemID, UserID: userID, CreatedAt: s.now().UTC()}
	if err := s.repo.AddWishlistEntry(ctx, entry); err != nil {
		return s.mapErr(ctx, err, "add wishlist entry")
	}
	return nil
}

// RemoveFromWishlist drops the entry regardless of prior state.
func (s *service) RemoveFromWishlist(ctx context.Context, userID string, itemID uuid.UUID) error {
	if err := s.repo.RemoveWishlistEntry(ctx, strings.TrimSpace(userID), itemID); err != nil {
		return s.mapErr(ctx, err, "remove wishlist entry")
	}
	return nil
}

func (s *service) ListWishlist(ctx context.Context, userID string, params pagination.Params) (pagination.Page[models.WishlistEntry], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return pagination.Page[models.WishlistEntry]{}, pkgerrors.Validation("invalid wishlist query", map[string]string{"user": "is required"})
	}
	entries, err := s.repo.ListWishlist(ctx, userID, params)
	if err != nil {
		return pagination.Page[models.WishlistEntry]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list wishlist")
	}
	return pagination.Paginate(entries, params.Limit, func(e models.WishlistEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	}), nil
}

func (s *service) checkRefsTx(ctx context.Context, tx *gorm.DB, categoryID, profileID *uuid.UUID) error {
	if categoryID != nil {
		ok, err := s.repo.CategoryExists(ctx, tx, *categoryID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
	}
	if profileID != nil {
		if _, err := s.repo.FindProfile(ctx, tx, *profileID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "management profile not found")
			}
			return err
		}
	}
	return nil
}

func (s *service) mapErr(ctx context.Context, err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "resource not found")
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "already exists")
	}
	s.logg.Error(ctx, op+" failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+what)
}

func validateImages(images []ImageInput, fields map[string]string) {
	for i, img := range images {
		if strings.TrimSpace(img.URL) == "" {
			fields[fmt.Sprintf("images.%d.url", i)] = "is required"
		}
		if img.Position == nil {
			fields[fmt.Sprintf("images.%d.position", i)] = "is required"
		} else if *img.Position < 0 {
			fields[fmt.Sprintf("images.%d.position", i)] = "must be a non-negative integer"
		}
	}
}

func validateProfile(p ProfileInput, creating bool, fields map[string]string) {
	if creating && (p.Name == nil || strings.TrimSpace(*p.Name) == "") {
		fields["stuff_management.name"] = "is required"
	}
	if p.Deposit != nil && p.Deposit.IsNegative() {
		fields["stuff_management.deposit"] = "must be greater than or equal to 0"
	}
	if p.Availability != nil && !p.Availability.IsValid() {
		fields["stuff_management.availability"] = "must be available or unavailable"
	}
}

func buildImages(itemID uuid.UUID, inputs []ImageInput) []models.ItemImage {
	images := make([]models.ItemImage, 0, len(inputs))
	for _, in := range inputs {
		pos := *in.Position
		alt := strings.TrimSpace(in.Alt)
		if alt == "" {
			alt = fmt.Sprintf("Image %d", pos)
		}
		images = append(images, models.ItemImage{
			ItemID:   itemID,
			URL:      strings.TrimSpace(in.URL),
			Alt:      alt,
			Position: pos,
		})
	}
	return images
}

func newProfile(in ProfileInput, now time.Time) *models.ItemManagementProfile {
	profile := &models.ItemManagementProfile{
		Name:                strings.TrimSpace(deref(in.Name)),
		LastMaintenance:     in.LastMaintenance,
		Condition:           defaultString(deref(in.Condition), "open"),
		RentalLocation:      deref(in.RentalLocation),
		Availability:        in.Availability,
		RentalZone:          in.RentalZone,
		Location:            in.Location,
		ContractDocumentKey: in.ContractDocumentKey,
		CreatedAt:           now.UTC(),
	}
	if in.Deposit != nil {
		profile.Deposit = decimal.NewNullDecimal(*in.Deposit)
	}
	return profile
}

func profileUpdates(in ProfileInput) map[string]any {
	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.LastMaintenance != nil {
		updates["last_maintenance"] = *in.LastMaintenance
	}
	if in.Condition != nil {
		updates["condition"] = *in.Condition
	}
	if in.RentalLocation != nil {
		updates["rental_location"] = *in.RentalLocation
	}
	if in.Deposit != nil {
		updates["deposit"] = *in.Deposit
	}
	if in.Availability != nil {
		updates["availability"] = *in.Availability
	}
	if in.RentalZone != nil {
		updates["rental_zone"] = *in.RentalZone
	}
	if in.Location != nil {
		updates["location"] = *in.Location
	}
	if in.ContractDocumentKey != nil {
		updates["contract_document_key"] = *in.ContractDocumentKey
	}
	return updates
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
