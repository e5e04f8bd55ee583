package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/domain/repository"
)

const (
	definitionPKPrefix = "DEFINITION#"
	definitionSK       = "DEFINITION"

	attrPK              = "PK"
	attrSK              = "SK"
	attrDefinitionID    = "definition_id"
	attrPayload         = "payload"
	attrCadence         = "cadence"
	attrLastPeriodLabel = "last_period_label"
	attrUpdatedAt       = "updated_at"
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

// api is the subset of the DynamoDB client used by the repository.
type api interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DefinitionRepository хранит определения отчетов в таблице DynamoDB,
// одно определение на элемент, целиком в атрибуте payload.
type DefinitionRepository struct {
	client      api
	tableName   string
	strongReads bool
	now         func() time.Time
}

func NewDefinitionRepository(ctx context.Context, cfg Config) (*DefinitionRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return newDefinitionRepository(client, cfg.TableName, cfg.StrongReads), nil
}

func newDefinitionRepository(client api, tableName string, strongReads bool) *DefinitionRepository {
	return &DefinitionRepository{
		client:      client,
		tableName:   strings.TrimSpace(tableName),
		strongReads: strongReads,
		now:         time.Now,
	}
}

// List scans definition ids. Items without an id are skipped.
func (r *DefinitionRepository) List(ctx context.Context) ([]repository.DefinitionRef, error) {
	filter := "begins_with(#pk, :prefix)"
	projection := "#id"
	input := &dynamodb.ScanInput{
		TableName:            &r.tableName,
		FilterExpression:     &filter,
		ProjectionExpression: &projection,
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPK,
			"#id": attrDefinitionID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: definitionPKPrefix},
		},
		ConsistentRead: boolPointer(r.strongReads),
	}

	refs := make([]repository.DefinitionRef, 0)
	for {
		output, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan failed: %w", err)
		}

		for _, item := range output.Items {
			id, err := attrString(item, attrDefinitionID)
			if err != nil {
				continue
			}
			refs = append(refs, repository.DefinitionRef(id))
		}

		if len(output.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs, nil
}

func (r *DefinitionRepository) Load(ctx context.Context, ref repository.DefinitionRef) (*entity.ReportDefinition, error) {
	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.tableName,
		Key:            buildKey(ref),
		ConsistentRead: boolPointer(r.strongReads),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get item failed: %w", err)
	}
	if len(output.Item) == 0 {
		return nil, fmt.Errorf("%s: %w", ref, reporterr.ErrDefinitionNotFound)
	}

	return fromItem(ref, output.Item)
}

func (r *DefinitionRepository) Save(ctx context.Context, ref repository.DefinitionRef, def *entity.ReportDefinition) error {
	item, err := toItem(ref, def, r.now())
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item failed: %w", err)
	}

	return nil
}

func toItem(ref repository.DefinitionRef, def *entity.ReportDefinition, updatedAt time.Time) (map[string]types.AttributeValue, error) {
	id := strings.TrimSpace(ref.String())
	if id == "" {
		return nil, reporterr.NewValidationError("id", "definition ref is required")
	}

	payload, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal definition %s: %w", id, err)
	}

	key := buildKey(ref)
	item := map[string]types.AttributeValue{
		attrPK:           key[attrPK],
		attrSK:           key[attrSK],
		attrDefinitionID: &types.AttributeValueMemberS{Value: id},
		attrPayload:      &types.AttributeValueMemberS{Value: string(payload)},
		attrUpdatedAt:    &types.AttributeValueMemberN{Value: strconv.FormatInt(updatedAt.UTC().UnixMilli(), 10)},
	}
	if def.Cadence != "" {
		item[attrCadence] = &types.AttributeValueMemberS{Value: string(def.Cadence)}
	}
	if label := def.DispatchState.LastPeriodLabel; !label.IsZero() {
		item[attrLastPeriodLabel] = &types.AttributeValueMemberS{Value: label.String()}
	}

	return item, nil
}

func fromItem(ref repository.DefinitionRef, item map[string]types.AttributeValue) (*entity.ReportDefinition, error) {
	payload, err := attrString(item, attrPayload)
	if err != nil {
		return nil, reporterr.NewValidationError("payload", err.Error())
	}

	var def entity.ReportDefinition
	if err := json.Unmarshal([]byte(payload), &def); err != nil {
		return nil, reporterr.NewValidationError("payload", "malformed definition: "+err.Error())
	}
	if def.ID == "" {
		def.ID = ref.String()
	}

	return &def, nil
}

func buildKey(ref repository.DefinitionRef) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: definitionPKPrefix + ref.String()},
		attrSK: &types.AttributeValueMemberS{Value: definitionSK},
	}
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func boolPointer(v bool) *bool {
	return &v
}
