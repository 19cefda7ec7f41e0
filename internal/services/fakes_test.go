package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pixelfolio/apiserver/internal/store"
	"github.com/pixelfolio/apiserver/types"
)

// fakeOTPRepo keeps records in memory keyed by (email, purpose), mirroring
// the store's upsert semantics.
type fakeOTPRepo struct {
	records map[string]types.OTP
	nextID  int
	now     func() time.Time
}

func newFakeOTPRepo(now func() time.Time) *fakeOTPRepo {
	return &fakeOTPRepo{records: make(map[string]types.OTP), now: now}
}

func otpKey(email string, purpose types.OTPPurpose) string {
	return email + "|" + string(purpose)
}

func (f *fakeOTPRepo) Upsert(_ context.Context, email, code string, purpose types.OTPPurpose) (types.OTP, error) {
	key := otpKey(email, purpose)
	record, ok := f.records[key]
	if !ok {
		f.nextID++
		record = types.OTP{ID: f.nextID, Email: email, Purpose: purpose}
	}
	record.Code = code
	record.CreatedAt = f.now()
	f.records[key] = record
	return record, nil
}

func (f *fakeOTPRepo) FindValid(_ context.Context, email, code string, purpose types.OTPPurpose, cutoff time.Time) (types.OTP, error) {
	record, ok := f.records[otpKey(email, purpose)]
	if !ok || record.Code != code || !record.CreatedAt.After(cutoff) {
		return types.OTP{}, store.ErrNotFound
	}
	return record, nil
}

func (f *fakeOTPRepo) FindValidByCode(_ context.Context, code string, purpose types.OTPPurpose, cutoff time.Time) (types.OTP, error) {
	for _, record := range f.records {
		if record.Purpose == purpose && record.Code == code && record.CreatedAt.After(cutoff) {
			return record, nil
		}
	}
	return types.OTP{}, store.ErrNotFound
}

func (f *fakeOTPRepo) Delete(_ context.Context, id int) error {
	for key, record := range f.records {
		if record.ID == id {
			delete(f.records, key)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeOTPRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for key, record := range f.records {
		if !record.CreatedAt.After(cutoff) {
			delete(f.records, key)
			purged++
		}
	}
	return purged, nil
}

// recordingNotifier captures dispatched codes so tests can read them back.
type recordingNotifier struct {
	sent []dispatchedOTP
}

type dispatchedOTP struct {
	email   string
	code    string
	purpose types.OTPPurpose
}

func (n *recordingNotifier) Dispatch(email, code string, purpose types.OTPPurpose) {
	n.sent = append(n.sent, dispatchedOTP{email: email, code: code, purpose: purpose})
}

func (n *recordingNotifier) lastCode() string {
	if len(n.sent) == 0 {
		return ""
	}
	return n.sent[len(n.sent)-1].code
}

// fakeUserRepo keeps users in memory keyed by id.
type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateRegistration(_ context.Context, id int, phone, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Phone = phone
	user.PasswordHash = passwordHash
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) SetVerified(_ context.Context, id int) error {
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Verified = true
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) SetPassword(_ context.Context, id int, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[id] = user
	return nil
}

// fakeGalleryRepo keeps items in memory keyed by id.
type fakeGalleryRepo struct {
	items  map[int]types.GalleryItem
	nextID int
}

func newFakeGalleryRepo() *fakeGalleryRepo {
	return &fakeGalleryRepo{items: make(map[int]types.GalleryItem)}
}

func (f *fakeGalleryRepo) ListByUser(_ context.Context, userID int) ([]types.GalleryItem, error) {
	var items []types.GalleryItem
	for _, item := range f.items {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].OrderIndex < items[j].OrderIndex })
	return items, nil
}

func (f *fakeGalleryRepo) Get(_ context.Context, id int) (types.GalleryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return types.GalleryItem{}, store.ErrNotFound
	}
	return item, nil
}

func (f *fakeGalleryRepo) Create(_ context.Context, item types.GalleryItem) (types.GalleryItem, error) {
	f.nextID++
	item.ID = f.nextID
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeGalleryRepo) Update(_ context.Context, item types.GalleryItem) (types.GalleryItem, error) {
	if _, ok := f.items[item.ID]; !ok {
		return types.GalleryItem{}, store.ErrNotFound
	}
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeGalleryRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeGalleryRepo) UpdateOrder(_ context.Context, userID int, updates []types.OrderUpdate) error {
	for _, update := range updates {
		item, ok := f.items[update.ID]
		if !ok || item.UserID != userID {
			continue
		}
		item.OrderIndex = update.OrderIndex
		f.items[update.ID] = item
	}
	return nil
}

// fakeUploader records hosted objects and serves deterministic URLs.
type fakeUploader struct {
	objects map[string][]byte
	removed []string
	failPut bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (f *fakeUploader) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if f.failPut {
		return "", fmt.Errorf("upload failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return "https://images.test/" + key, nil
}

func (f *fakeUploader) Remove(_ context.Context, key string) error {
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}
