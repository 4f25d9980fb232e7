package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/ycf/billing-portal/internal/model"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/login", credentials{username, password}, "application/json", maxJSONBody)
	if err != nil {
		return "", err
	}
	tok := gjson.GetBytes(raw, "token").String()
	if tok == "" {
		return "", errEmptyToken
	}
	return tok, nil
}

// Signup registers a new staff user.
func (c *Client) Signup(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/signup", credentials{username, password}, nil)
}

func petPath(id string) string { return "/pets/" + url.PathEscape(id) }

// ListPets returns every pet record.
func (c *Client) ListPets(ctx context.Context) ([]model.PetRecord, error) {
	var out []model.PetRecord
	if err := c.doJSON(ctx, http.MethodGet, "/pets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPet returns one pet record.
func (c *Client) GetPet(ctx context.Context, id string) (model.PetRecord, error) {
	var p model.PetRecord
	err := c.doJSON(ctx, http.MethodGet, petPath(id), nil, &p)
	return p, err
}

func (c *Client) writePet(ctx context.Context, method, path string, p model.PetRecord) (model.PetRecord, error) {
	raw, err := c.do(ctx, method, path, p, "application/json", maxJSONBody)
	if err != nil {
		return model.PetRecord{}, err
	}
	var out model.PetRecord
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(unwrap(raw, "pet"), &out); err != nil {
		return model.PetRecord{}, fmt.Errorf("api: decode pet: %w", err)
	}
	return out, nil
}

// CreatePet stores a new pet and returns the server copy.
func (c *Client) CreatePet(ctx context.Context, p model.PetRecord) (model.PetRecord, error) {
	p.ID = ""
	return c.writePet(ctx, http.MethodPost, "/pets", p)
}

// UpdatePet replaces the pet identified by p.ID.
func (c *Client) UpdatePet(ctx context.Context, p model.PetRecord) (model.PetRecord, error) {
	if p.ID == "" {
		return model.PetRecord{}, fmt.Errorf("api: update pet: empty id")
	}
	return c.writePet(ctx, http.MethodPut, petPath(p.ID), p)
}

// DeletePet removes a pet.
func (c *Client) DeletePet(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, petPath(id), nil, nil)
}

// DownloadInvoice returns the generated PDF invoice of a pet.
func (c *Client) DownloadInvoice(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, petPath(id)+"/download-pdf", nil, "application/pdf", maxBinaryBody)
}

// ListExpenses returns one ledger page. Servers that answer with a bare
// array are accepted; Total is then the array length.
func (c *Client) ListExpenses(ctx context.Context, page, limit int) (model.ExpensePage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/expenses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	raw, err := c.do(ctx, http.MethodGet, path, nil, "application/json", maxJSONBody)
	if err != nil {
		return model.ExpensePage{}, err
	}

	var pg model.ExpensePage
	if gjson.ParseBytes(raw).IsArray() {
		if err := json.Unmarshal(raw, &pg.Data); err != nil {
			return model.ExpensePage{}, fmt.Errorf("api: decode expenses: %w", err)
		}
		pg.Total = len(pg.Data)
		return pg, nil
	}
	if err := json.Unmarshal(raw, &pg); err != nil {
		return model.ExpensePage{}, fmt.Errorf("api: decode expenses: %w", err)
	}
	if !gjson.GetBytes(raw, "total").Exists() {
		pg.Total = len(pg.Data)
	}
	return pg, nil
}

// CreateExpense records a ledger expense.
func (c *Client) CreateExpense(ctx context.Context, e model.ExpenseRecord) (model.ExpenseRecord, error) {
	e.ID = ""
	raw, err := c.do(ctx, http.MethodPost, "/expenses", e, "application/json", maxJSONBody)
	if err != nil {
		return model.ExpenseRecord{}, err
	}
	if len(raw) == 0 {
		return e, nil
	}
	var out model.ExpenseRecord
	if err := json.Unmarshal(unwrap(raw, "expense"), &out); err != nil {
		return model.ExpenseRecord{}, fmt.Errorf("api: decode expense: %w", err)
	}
	return out, nil
}
