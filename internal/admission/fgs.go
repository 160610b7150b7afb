package admission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/circuit"
)

// fgsTimeout bounds the outbound call so approvals never hang on the
// admission system.
const fgsTimeout = 30 * time.Second

// FGSClient posts flattened candidate payloads to the FGS admission API.
// A circuit breaker fails calls fast while FGS is down; the snapshot stays
// stored, so HR can retry the send once the integration recovers.
type FGSClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *circuit.Breaker
}

func NewFGSClient(baseURL, apiKey string) *FGSClient {
	return &FGSClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: fgsTimeout},
		breaker: circuit.New("fgs", circuit.WithFailureThreshold(3)),
	}
}

// Configured reports whether an endpoint was provided.
func (c *FGSClient) Configured() bool { return c != nil && c.baseURL != "" }

type fgsPayload struct {
	Nome           string       `json:"nome"`
	CPF            string       `json:"cpf"`
	Email          string       `json:"email"`
	Telefone       string       `json:"telefone,omitempty"`
	DataNascimento *string      `json:"data_nascimento,omitempty"`
	Endereco       fgsEndereco  `json:"endereco"`
	Documentos     DocumentURLs `json:"documentos"`
	Vaga           fgsVaga      `json:"vaga"`
	Origem         string       `json:"origem"`
	CandidatoID    int64        `json:"candidato_id_origem"`
}

type fgsEndereco struct {
	Estado string `json:"estado,omitempty"`
	Cidade string `json:"cidade,omitempty"`
	Bairro string `json:"bairro,omitempty"`
}

type fgsVaga struct {
	ID     *int64 `json:"id,omitempty"`
	Titulo string `json:"titulo,omitempty"`
}

func (c *FGSClient) Send(ctx context.Context, snap *Snapshot) error {
	if !c.Configured() {
		return dErrors.New(dErrors.CodeUnavailable, "Integração FGS não configurada")
	}

	payload := fgsPayload{
		Nome:           snap.Nome,
		CPF:            snap.CPF,
		Email:          snap.Email,
		Telefone:       snap.Telefone,
		DataNascimento: snap.DataNascimento,
		Endereco:       fgsEndereco{Estado: snap.Estado, Cidade: snap.Cidade, Bairro: snap.Bairro},
		Documentos:     snap.Documents,
		Vaga:           fgsVaga{ID: snap.VagaID, Titulo: snap.VagaTitulo},
		Origem:         "trabalhe_conosco",
		CandidatoID:    snap.CandidateID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal fgs payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build fgs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.fail(fmt.Errorf("post to fgs: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return c.fail(fmt.Errorf("fgs returned status %d: %s", resp.StatusCode, detail))
	}

	c.breaker.RecordSuccess()
	return nil
}

// fail records the outcome on the breaker. Once the circuit is open,
// repeated failures surface as an availability error so HR sees "try again
// later" instead of raw transport noise.
func (c *FGSClient) fail(err error) error {
	if degraded, _ := c.breaker.RecordFailure(); degraded {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Integração FGS indisponível no momento, tente novamente mais tarde")
	}
	return err
}
