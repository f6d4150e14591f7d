package drugsearch

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "http://apis.data.go.kr/1471000/DrugPrdtPrmsnInfoService05"
	searchPath     = "/getDrugPrdtPrmsnInqSrvc05"
	resultCodeOK   = "00"
)

// queryParams maps each search type to the registry's filter parameter.
var queryParams = map[SearchType]string{
	ByName:       "item_name",
	ByIngredient: "main_item_ingr",
	ByCompany:    "entp_name",
}

type registryResponse struct {
	Header struct {
		ResultCode string `json:"resultCode"`
		ResultMsg  string `json:"resultMsg"`
	} `json:"header"`
	Body struct {
		TotalCount int            `json:"totalCount"`
		Items      []registryItem `json:"items"`
	} `json:"body"`
}

type registryItem struct {
	ItemName       string `json:"ITEM_NAME"`
	EntpName       string `json:"ENTP_NAME"`
	EEDocData      string `json:"EE_DOC_DATA"`
	UDDocData      string `json:"UD_DOC_DATA"`
	NBDocData      string `json:"NB_DOC_DATA"`
	SEDocData      string `json:"SE_DOC_DATA"`
	MainItemIngr   string `json:"MAIN_ITEM_INGR"`
	ItemPermitDate string `json:"ITEM_PERMIT_DATE"`
}

func (it registryItem) info() MedicationInfo {
	effect := it.EEDocData
	if effect == "" {
		effect = it.MainItemIngr
	}
	return MedicationInfo{
		Name:           it.ItemName,
		Company:        it.EntpName,
		Effect:         effect,
		Usage:          it.UDDocData,
		Precautions:    it.NBDocData,
		SideEffects:    it.SEDocData,
		Ingredients:    it.MainItemIngr,
		ApprovalNumber: it.ItemPermitDate,
	}
}

// Searcher queries a drug registry.
type Searcher interface {
	Search(ctx context.Context, typ SearchType, query string, page, limit int) (*SearchResult, error)
}

// Client calls the KFDA drug product permit service.
type Client struct {
	http       *resty.Client
	serviceKey string
	logger     zerolog.Logger
}

// NewClient builds a registry client. serviceKey is the decoded data.go.kr
// key; it is URL-encoded on each request.
func NewClient(baseURL, serviceKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http:       client,
		serviceKey: serviceKey,
		logger:     logger.With().Str("component", "drugsearch").Logger(),
	}
}

func (c *Client) Search(ctx context.Context, typ SearchType, query string, page, limit int) (*SearchResult, error) {
	if c.serviceKey == "" {
		return nil, ErrNotConfigured
	}
	param, ok := queryParams[typ]
	if !ok {
		param = queryParams[ByName]
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"serviceKey": c.serviceKey,
			"pageNo":     strconv.Itoa(page),
			"numOfRows":  strconv.Itoa(limit),
			"type":       "json",
			param:        query,
		}).
		Get(searchPath)
	if err != nil {
		c.logger.Error().Err(err).Str("type", string(typ)).Msg("registry request failed")
		return nil, &RegistryError{Err: err}
	}
	if resp.IsError() {
		c.logger.Error().Int("status", resp.StatusCode()).Msg("registry returned an error status")
		return nil, &RegistryError{StatusCode: resp.StatusCode()}
	}

	var out registryResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		// The registry answers some key errors with an XML body and status 200.
		c.logger.Error().Err(err).Str("body", truncate(resp.String(), 200)).Msg("registry response is not JSON")
		return nil, &RegistryError{StatusCode: resp.StatusCode(), Err: errors.New("unexpected response format")}
	}
	if out.Header.ResultCode != resultCodeOK {
		c.logger.Error().Str("code", out.Header.ResultCode).Str("message", out.Header.ResultMsg).Msg("registry reported an error")
		return nil, &RegistryError{StatusCode: resp.StatusCode(), Code: out.Header.ResultCode, Message: out.Header.ResultMsg}
	}

	result := &SearchResult{
		Medications: make([]MedicationInfo, 0, len(out.Body.Items)),
		TotalCount:  out.Body.TotalCount,
	}
	for _, it := range out.Body.Items {
		result.Medications = append(result.Medications, it.info())
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
