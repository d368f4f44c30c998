package storage

import (
	"context"
	"regexp"
	"testing"
)

func TestPhotoExtension(t *testing.T) {
	cases := []struct {
		mime, file, want string
	}{
		{"image/jpeg", "", ".jpg"},
		{"image/png; charset=binary", "", ".png"},
		{"application/octet-stream", "Lunch.JPEG", ".jpeg"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := PhotoExtension(tc.mime, tc.file); got != tc.want {
			t.Fatalf("PhotoExtension(%q, %q) = %q, want %q", tc.mime, tc.file, got, tc.want)
		}
	}
}

func TestSaveMealPhotoUsesUserScopedKey(t *testing.T) {
	objects := NewMemoryStore()
	key, err := SaveMealPhoto(context.Background(), objects, "user-1", []byte("jpegdata"), "image/jpeg", "plate.jpg")
	if err != nil {
		t.Fatalf("save photo: %v", err)
	}
	pattern := regexp.MustCompile(`^meals/user-1/[0-9a-f-]{36}\.jpg$`)
	if !pattern.MatchString(key) {
		t.Fatalf("unexpected key %q", key)
	}
	data, contentType, ok := objects.Get(key)
	if !ok || string(data) != "jpegdata" || contentType != "image/jpeg" {
		t.Fatalf("unexpected stored object: ok=%v data=%q type=%q", ok, data, contentType)
	}
	if url, err := objects.PresignGet(context.Background(), key, 0); err != nil || url != "memory://"+key {
		t.Fatalf("presign: url=%q err=%v", url, err)
	}
	if err := objects.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(objects.Keys("meals/user-1/")) != 0 {
		t.Fatalf("expected no keys after delete")
	}
}

func TestSaveMealPhotoRequiresStore(t *testing.T) {
	if _, err := SaveMealPhoto(context.Background(), nil, "u", []byte("x"), "image/png", ""); err == nil {
		t.Fatalf("expected error without store")
	}
}
