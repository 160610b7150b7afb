package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploaded(url string) Slot {
	return Slot{URL: &url}
}

func TestCompletenessRequiresAllMandatorySlots(t *testing.T) {
	rec := &Record{Slots: map[Type]Slot{}}
	for _, dt := range MandatoryTypes() {
		rec.Slots[dt] = uploaded("https://files.example/" + string(dt) + ".jpg")
	}
	rec.Declaration = &Declaration{Value: EthnicityParda}

	c := rec.Completeness()
	assert.True(t, c.Completo)
	assert.Empty(t, c.Faltando)
	assert.Equal(t, len(MandatoryTypes()), c.Enviados)
	assert.True(t, c.Autodeclaracao)
}

func TestCompletenessReportsMissingSlots(t *testing.T) {
	rec := &Record{Slots: map[Type]Slot{
		TypeFoto3x4:     uploaded("https://files.example/foto.jpg"),
		TypeCTPSDigital: uploaded("https://files.example/ctps.jpg"),
	}}
	rec.Declaration = &Declaration{Value: EthnicityBranca}

	c := rec.Completeness()
	assert.False(t, c.Completo)
	assert.Equal(t, 2, c.Enviados)
	assert.Contains(t, c.Faltando, string(TypeTituloEleitor))
	assert.NotContains(t, c.Faltando, string(TypeFoto3x4))
}

func TestCompletenessRequiresDeclaration(t *testing.T) {
	rec := &Record{Slots: map[Type]Slot{}}
	for _, dt := range MandatoryTypes() {
		rec.Slots[dt] = uploaded("https://files.example/" + string(dt) + ".jpg")
	}

	c := rec.Completeness()
	assert.False(t, c.Completo, "every slot uploaded but no self-declaration")
	assert.False(t, c.Autodeclaracao)
	assert.Empty(t, c.Faltando)
}

func TestCompletenessIgnoresReservista(t *testing.T) {
	rec := &Record{Slots: map[Type]Slot{}}
	for _, dt := range MandatoryTypes() {
		rec.Slots[dt] = uploaded("https://files.example/" + string(dt) + ".jpg")
	}
	rec.Declaration = &Declaration{Value: EthnicityPreta}

	require.True(t, rec.Completeness().Completo)

	// Adding the optional reservista must not change the outcome.
	rec.Slots[TypeReservista] = uploaded("https://files.example/reservista.jpg")
	assert.True(t, rec.Completeness().Completo)
	assert.Equal(t, len(MandatoryTypes()), rec.Completeness().Enviados)
}

func TestSlotUploaded(t *testing.T) {
	assert.False(t, Slot{}.Uploaded())

	empty := ""
	assert.False(t, Slot{URL: &empty}.Uploaded())

	assert.True(t, uploaded("https://files.example/doc.jpg").Uploaded())
}

func TestParseTypeRejectsUnknown(t *testing.T) {
	_, err := ParseType("cnh")
	require.Error(t, err)

	dt, err := ParseType("titulo_eleitor")
	require.NoError(t, err)
	assert.Equal(t, TypeTituloEleitor, dt)
}

func TestCredentialExpired(t *testing.T) {
	now := time.Now()
	cred := Credential{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, cred.Expired(now))
	assert.True(t, cred.Expired(now.Add(2*time.Hour)))
}
