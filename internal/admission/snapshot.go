// Package admission flattens an approved candidate's documents into the shape
// the external FGS admission system expects and transmits it.
package admission

import (
	"time"

	"conosco/internal/document"
)

// DocumentURLs carries the per-type URLs under the external system's naming.
type DocumentURLs struct {
	Foto                  *string `json:"foto,omitempty"`
	CTPS                  *string `json:"ctps,omitempty"`
	RGFrente              *string `json:"rg_frente,omitempty"`
	RGVerso               *string `json:"rg_verso,omitempty"`
	ComprovanteResidencia *string `json:"comprovante_residencia,omitempty"`
	Certidao              *string `json:"certidao,omitempty"`
	Reservista            *string `json:"reservista,omitempty"`
	TituloEleitor         *string `json:"titulo_eleitor,omitempty"`
	Antecedentes          *string `json:"antecedentes,omitempty"`
	CurriculoURL          *string `json:"curriculo_url,omitempty"`
}

// Snapshot is the flattened admission payload frozen at approval time.
type Snapshot struct {
	CandidateID    int64        `json:"candidato_id_origem"`
	Nome           string       `json:"nome"`
	CPF            string       `json:"cpf"`
	Email          string       `json:"email"`
	Telefone       string       `json:"telefone,omitempty"`
	DataNascimento *string      `json:"data_nascimento,omitempty"`
	Estado         string       `json:"estado,omitempty"`
	Cidade         string       `json:"cidade,omitempty"`
	Bairro         string       `json:"bairro,omitempty"`
	VagaID         *int64       `json:"vaga_id,omitempty"`
	VagaTitulo     string       `json:"vaga_titulo,omitempty"`
	Autodeclaracao string       `json:"autodeclaracao,omitempty"`
	Documents      DocumentURLs `json:"documentos"`
	CreatedAt      time.Time    `json:"criado_em"`
	SentAt         *time.Time   `json:"enviado_em,omitempty"`
}

// flattenDocuments renames the record's slots to the external field names.
// Only validated, non-empty slots are copied.
func flattenDocuments(record *document.Record) DocumentURLs {
	pick := func(t document.Type) *string {
		slot := record.Slot(t)
		if !slot.Uploaded() || !slot.Validated {
			return nil
		}
		return slot.URL
	}
	return DocumentURLs{
		Foto:                  pick(document.TypeFoto3x4),
		CTPS:                  pick(document.TypeCTPSDigital),
		RGFrente:              pick(document.TypeIdentidadeFrente),
		RGVerso:               pick(document.TypeIdentidadeVerso),
		ComprovanteResidencia: pick(document.TypeComprovanteResidencia),
		Certidao:              pick(document.TypeCertidaoNascimentoCasamento),
		Reservista:            pick(document.TypeReservista),
		TituloEleitor:         pick(document.TypeTituloEleitor),
		Antecedentes:          pick(document.TypeAntecedentesCriminais),
	}
}
