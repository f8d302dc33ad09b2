package randx

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPhotoFileName(t *testing.T) {
	now := time.Date(2025, 7, 30, 16, 21, 5, 0, time.UTC)

	tests := []struct {
		original string
		want     string
	}{
		{"profile.jpg", "2507301621_profile"},
		{"my photo (1).PNG", "2507301621_my_photo__1_"},
		{"/home/anra/사진 01.jpeg", "2507301621_사진_01"},
		{"averyveryverylongfilename_with_parts.jpg", "2507301621_averyveryverylongfil"},
		{"noext", "2507301621_noext"},
		{"", "2507301621_photo"},
		{`C:\Users\anra\me.png`, "2507301621_me"},
	}
	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.want, PhotoFileName(tt.original, now))
		})
	}
}

func TestIDs(t *testing.T) {
	_, err := uuid.Parse(TokenID())
	assert.NoError(t, err)
	assert.NotEqual(t, RequestID(), RequestID())
}
