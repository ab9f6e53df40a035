package affiliates

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleProject() *ProjectRecord {
	title, _ := NewTitle("Référence ✓")
	return &ProjectRecord{
		Discriminator:          ProjectDiscriminator,
		Initialized:            true,
		DataVersion:            ProjectDataVersion,
		OwnerKey:               newTestKey(0x01),
		CampaignID:             newTestKey(0x02),
		AffiliateFeePercentage: 7.25,
		AffiliateTarget:        4,
		MaxAffiliateCount:      9,
		AffiliateCount:         3,
		Title:                  title,
		CreatedAt:              1_700_000_000,
		UpdatedAt:              1_700_000_500,
	}
}

func TestRecordSizes(t *testing.T) {
	require.Equal(t, 316, ProjectRecordSize)
	require.Equal(t, 131, AffiliateRecordSize)
}

func TestProjectRecordEncoding(t *testing.T) {
	rec := sampleProject()
	data, err := rec.Encode()
	require.NoError(t, err)
	require.Len(t, data, ProjectRecordSize)

	// u32 little-endian length prefix followed by the discriminator.
	require.Equal(t, []byte{byte(len(ProjectDiscriminator)), 0, 0, 0}, data[:4])
	require.Equal(t, ProjectDiscriminator, string(data[4:4+len(ProjectDiscriminator)]))

	decoded, ok, err := LoadProject(data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec, decoded)
}

func TestAffiliateRecordEncoding(t *testing.T) {
	rec := &AffiliateRecord{
		Discriminator:   AffiliateDiscriminator,
		Initialized:     true,
		AffiliateKey:    newTestKey(0x11),
		ProjectOwnerKey: newTestKey(0x01),
		CampaignID:      newTestKey(0x02),
		TotalRedeemed:   42,
		CreatedAt:       -5,
	}
	data, err := rec.Encode()
	require.NoError(t, err)
	require.Len(t, data, AffiliateRecordSize)

	decoded, ok, err := LoadAffiliate(data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec, decoded)
}

func TestZeroedSlotsDecodeUninitialized(t *testing.T) {
	for _, data := range [][]byte{nil, make([]byte, ProjectRecordSize)} {
		rec, err := DecodeProject(data)
		require.NoError(t, err)
		require.False(t, rec.Initialized)

		_, ok, err := LoadProject(data)
		require.NoError(t, err)
		require.False(t, ok)
	}
	rec, err := DecodeAffiliate(make([]byte, AffiliateRecordSize))
	require.NoError(t, err)
	require.False(t, rec.Initialized)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	data, err := sampleProject().Encode()
	require.NoError(t, err)

	_, err = DecodeProject(data[:ProjectRecordSize-1])
	require.True(t, errors.Is(err, ErrInvalidDataLength), "got %v", err)
	_, err = DecodeProject(append(data, 0))
	require.True(t, errors.Is(err, ErrInvalidDataLength), "got %v", err)

	// A project slot is never a valid affiliate slot.
	_, err = DecodeAffiliate(data)
	require.True(t, errors.Is(err, ErrInvalidDataLength), "got %v", err)
}

func TestLoadRejectsForeignDiscriminator(t *testing.T) {
	rec := sampleProject()
	rec.Discriminator = "project_acc0unt"
	data, err := rec.Encode()
	require.NoError(t, err)
	_, _, err = LoadProject(data)
	require.True(t, errors.Is(err, ErrInvalidAccountData), "got %v", err)
}

func TestDecodeRejectsCorruptFields(t *testing.T) {
	data, err := sampleProject().Encode()
	require.NoError(t, err)

	badBool := append([]byte(nil), data...)
	badBool[4+len(ProjectDiscriminator)] = 2
	_, err = DecodeProject(badBool)
	require.True(t, errors.Is(err, ErrInvalidAccountData), "got %v", err)

	// Title length prefix pointing past the slot.
	titleOffset := 4 + len(ProjectDiscriminator) + 2 + 64 + 8 + 3
	hugeTitle := append([]byte(nil), data...)
	hugeTitle[titleOffset+3] = 0x7f
	_, err = DecodeProject(hugeTitle)
	require.True(t, errors.Is(err, ErrInvalidAccountData), "got %v", err)
}

func TestProjectEncodeGuardsCount(t *testing.T) {
	rec := sampleProject()
	rec.AffiliateCount = rec.MaxAffiliateCount + 1
	_, err := rec.Encode()
	require.Error(t, err)
}

func TestTitleBounds(t *testing.T) {
	_, err := NewTitle(strings.Repeat("x", MaxProjectTitleLength))
	require.NoError(t, err)

	_, err = NewTitle(strings.Repeat("x", MaxProjectTitleLength+1))
	require.True(t, errors.Is(err, ErrProjectTitleTooLong))

	// Character count, not byte count, is bounded.
	wide, err := NewTitle(strings.Repeat("界", MaxProjectTitleLength))
	require.NoError(t, err)
	rec := sampleProject()
	rec.Title = wide
	data, err := rec.Encode()
	require.NoError(t, err)
	decoded, _, err := LoadProject(data)
	require.NoError(t, err)
	require.Equal(t, wide.String(), decoded.Title.String())

	_, err = NewTitle(string([]byte{0xff, 0xfe}))
	require.Error(t, err)
}
