package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"

	"diligence-backend/internal/core"
)

// mapperBatchSize bounds how many client accounts go into one model call.
const mapperBatchSize = 15

// minMappingConfidence is the floor below which a classification is discarded
// and the account lands in the low-confidence bucket for manual review.
const minMappingConfidence = 0.85

type MapperService interface {
	MapAccounts(ctx context.Context, accounts []core.ClientAccount, coa []core.MasterAccount) ([]core.AccountMapping, error)
}

type Mapper struct {
	client *openai.Client
}

func NewMapper(apiKey string) *Mapper {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Mapper{client: &client}
}

// MappingDecision is one classification returned by the model.
type MappingDecision struct {
	OriginalAccount   string  `json:"original_account" jsonschema_description:"The client account string exactly as provided in the input list"`
	MasterAccountCode string  `json:"master_account_code" jsonschema_description:"The account code from the provided standard Chart of Accounts that best matches, or empty string if none fits"`
	Confidence        float64 `json:"confidence" jsonschema_description:"Confidence score between 0.0 and 1.0"`
	Reasoning         string  `json:"reasoning" jsonschema_description:"One sentence explaining the classification"`
}

// MappingBatch wraps the model output so the schema has a single root object.
type MappingBatch struct {
	Decisions []MappingDecision `json:"decisions" jsonschema_description:"One decision per input account, in input order"`
}

// MapAccounts classifies client accounts against the standard chart of
// accounts in batches. A failed batch degrades to low-confidence placeholders
// instead of failing the whole run.
func (m *Mapper) MapAccounts(ctx context.Context, accounts []core.ClientAccount, coa []core.MasterAccount) ([]core.AccountMapping, error) {
	if len(accounts) == 0 {
		return nil, nil
	}
	if len(coa) == 0 {
		return nil, fmt.Errorf("master chart of accounts is empty")
	}

	coaByCode := make(map[string]core.MasterAccount, len(coa))
	for _, a := range coa {
		coaByCode[a.AccountCode] = a
	}
	coaPrompt := formatCOA(coa)

	var mappings []core.AccountMapping
	for start := 0; start < len(accounts); start += mapperBatchSize {
		end := start + mapperBatchSize
		if end > len(accounts) {
			end = len(accounts)
		}
		batch := accounts[start:end]

		decisions, err := m.classifyBatch(ctx, batch, coaPrompt)
		if err != nil {
			log.Printf("mapper: batch %d-%d failed, marking unmapped: %v", start, end, err)
			for _, a := range batch {
				mappings = append(mappings, unmappedPlaceholder(a, err.Error()))
			}
			continue
		}

		byOriginal := make(map[string]MappingDecision, len(decisions))
		for _, d := range decisions {
			byOriginal[d.OriginalAccount] = d
		}

		for _, a := range batch {
			d, ok := byOriginal[a.OriginalAccount]
			if !ok || d.Confidence < minMappingConfidence {
				mappings = append(mappings, unmappedPlaceholder(a, d.Reasoning))
				continue
			}
			master, ok := coaByCode[d.MasterAccountCode]
			if !ok {
				// The model invented a code not in the chart.
				mappings = append(mappings, unmappedPlaceholder(a, fmt.Sprintf("unknown account code %q", d.MasterAccountCode)))
				continue
			}
			masterID := master.ID
			mappings = append(mappings, core.AccountMapping{
				DealID:          a.DealID,
				ClientAccountID: a.ID,
				MasterAccountID: &masterID,
				MappedName:      master.AccountName,
				Confidence:      d.Confidence,
				Reasoning:       d.Reasoning,
			})
		}
	}
	return mappings, nil
}

func (m *Mapper) classifyBatch(ctx context.Context, batch []core.ClientAccount, coaPrompt string) ([]MappingDecision, error) {
	var b strings.Builder
	for _, a := range batch {
		fmt.Fprintf(&b, "- %q", a.OriginalAccount)
		if a.SampleDesc != "" {
			fmt.Fprintf(&b, " (sample transactions: %s)", a.SampleDesc)
		}
		b.WriteString("\n")
	}

	prompt := fmt.Sprintf(`You are an expert accountant performing financial due diligence.
Map each client account name below onto the standard Chart of Accounts.
Rules:
1. Use ONLY account codes from the chart below; return an empty code if nothing fits.
2. Return exactly one decision per input account, echoing the account string verbatim.
3. Provide a confidence score (0.0-1.0) and one sentence of reasoning per decision.

Standard Chart of Accounts:
%s

Client accounts:
%s`, coaPrompt, b.String())

	schemaJSON, err := json.Marshal(generateMappingSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "account_mapping_batch",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Classifications of client GL accounts onto a standard chart of accounts"),
				},
			},
		},
	}

	resp, err := m.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var out MappingBatch
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	return out.Decisions, nil
}

func unmappedPlaceholder(a core.ClientAccount, reasoning string) core.AccountMapping {
	if reasoning == "" {
		reasoning = "model returned no decision for this account"
	}
	return core.AccountMapping{
		DealID:          a.DealID,
		ClientAccountID: a.ID,
		MappedName:      core.UnmappedLowConfidence,
		Confidence:      0,
		Reasoning:       reasoning,
	}
}

func formatCOA(coa []core.MasterAccount) string {
	var b strings.Builder
	for _, a := range coa {
		fmt.Fprintf(&b, "%s: %s (%s", a.AccountCode, a.AccountName, a.Category)
		if a.Subcategory != "" {
			fmt.Fprintf(&b, " / %s", a.Subcategory)
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func generateMappingSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v MappingBatch
	return reflector.Reflect(v)
}
