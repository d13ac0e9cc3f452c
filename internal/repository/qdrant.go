package repository

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"carfinder/internal/config"
	"carfinder/internal/model"
)

// Payload fields that get a Qdrant payload index, by index type
var (
	keywordIndexFields = []string{model.FieldModel, model.FieldColor, model.FieldCity, model.FieldEngine}
	floatIndexFields   = []string{model.FieldPriceNum, model.FieldMileageNum}
	integerIndexFields = []string{model.FieldYear}
)

// upsertBatchSize bounds the number of points per upsert request
const upsertBatchSize = 64

// QdrantRepository stores cars as Qdrant points with the car as payload
type QdrantRepository struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantRepository creates a new Qdrant repository
func NewQdrantRepository(cfg *config.QdrantConfig) (*QdrantRepository, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantRepository{client: client, collection: cfg.Collection}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.client.Close()
}

// Ping checks that Qdrant is reachable
func (r *QdrantRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := r.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Search performs similarity search restricted by pred
func (r *QdrantRepository) Search(ctx context.Context, pred *model.Predicate, vector []float32, limit int) ([]model.ScoredCar, error) {
	limitUint64 := uint64(limit)
	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		Filter:         toQdrantFilter(pred),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]model.ScoredCar, 0, len(points))
	for _, point := range points {
		results = append(results, model.ScoredCar{
			Car:   carFromPayload(point.GetId(), point.GetPayload()),
			Score: float64(point.GetScore()),
		})
	}
	return results, nil
}

// Enumerate scrolls through cars matching pred in id order
func (r *QdrantRepository) Enumerate(ctx context.Context, pred *model.Predicate, cursor string, batch int) ([]model.Car, string, error) {
	offset, err := decodeCursor(cursor)
	if err != nil {
		log.Printf("⚠️  Ignoring ill-formed scroll cursor %q: %v", cursor, err)
		return nil, "", nil
	}

	limit := uint32(batch)
	resp, err := r.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: r.collection,
		Filter:         toQdrantFilter(pred),
		Offset:         offset,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, "", fmt.Errorf("qdrant scroll failed: %w", err)
	}

	cars := make([]model.Car, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		cars = append(cars, carFromPayload(point.GetId(), point.GetPayload()))
	}
	return cars, encodeCursor(resp.GetNextPageOffset()), nil
}

// GetCar retrieves a single car by id; a missing car is (nil, nil)
func (r *QdrantRepository) GetCar(ctx context.Context, id uint64) (*model.Car, error) {
	points, err := r.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: r.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	car := carFromPayload(points[0].GetId(), points[0].GetPayload())
	return &car, nil
}

// EnsureIndex creates the collection and its payload indexes if missing
func (r *QdrantRepository) EnsureIndex(ctx context.Context, dims int) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", r.collection, err)
	}
	if exists {
		log.Printf("✅ Collection '%s' already exists", r.collection)
		return nil
	}

	err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", r.collection, err)
	}

	for _, f := range payloadIndexes() {
		wait := true
		if _, err := r.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: r.collection,
			FieldName:      f.name,
			FieldType:      f.kind.Enum(),
			Wait:           &wait,
		}); err != nil {
			return fmt.Errorf("failed to index payload field %s: %w", f.name, err)
		}
	}

	log.Printf("✅ Collection '%s' created (%d dims, cosine)", r.collection, dims)
	return nil
}

// ResetIndex drops and recreates the collection
func (r *QdrantRepository) ResetIndex(ctx context.Context, dims int) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", r.collection, err)
	}
	if exists {
		if err := r.client.DeleteCollection(ctx, r.collection); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", r.collection, err)
		}
		log.Printf("🗑️  Collection '%s' deleted", r.collection)
	}
	return r.EnsureIndex(ctx, dims)
}

// UpsertCars writes cars and their vectors, batching requests
func (r *QdrantRepository) UpsertCars(ctx context.Context, cars []model.IndexedCar) error {
	for start := 0; start < len(cars); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(cars) {
			end = len(cars)
		}

		points := make([]*qdrant.PointStruct, 0, end-start)
		for _, c := range cars[start:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(c.Car.ID),
				Vectors: qdrant.NewVectors(c.Vector...),
				Payload: carPayload(c.Car),
			})
		}

		wait := true
		if _, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: r.collection,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
		}
	}
	return nil
}

type payloadIndex struct {
	name string
	kind qdrant.FieldType
}

func payloadIndexes() []payloadIndex {
	var out []payloadIndex
	for _, f := range keywordIndexFields {
		out = append(out, payloadIndex{f, qdrant.FieldType_FieldTypeKeyword})
	}
	for _, f := range floatIndexFields {
		out = append(out, payloadIndex{f, qdrant.FieldType_FieldTypeFloat})
	}
	for _, f := range integerIndexFields {
		out = append(out, payloadIndex{f, qdrant.FieldType_FieldTypeInteger})
	}
	return out
}

// toQdrantFilter converts a predicate into a Qdrant must-filter
func toQdrantFilter(pred *model.Predicate) *qdrant.Filter {
	if pred == nil || len(pred.Must) == 0 {
		return nil
	}

	conditions := make([]*qdrant.Condition, 0, len(pred.Must))
	for _, c := range pred.Must {
		field := &qdrant.FieldCondition{Key: c.Field}
		switch {
		case c.Range != nil:
			field.Range = &qdrant.Range{Gte: c.Range.Gte, Lte: c.Range.Lte}
		case c.Match != nil && c.Match.Integer != nil:
			field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: *c.Match.Integer}}
		case c.Match != nil && c.Match.Keyword != nil:
			field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: *c.Match.Keyword}}
		default:
			continue
		}
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{Field: field},
		})
	}

	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

// encodeCursor renders a scroll offset; nil means the scroll is exhausted
func encodeCursor(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch opt := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Num:
		return "n:" + strconv.FormatUint(opt.Num, 10)
	case *qdrant.PointId_Uuid:
		return "u:" + opt.Uuid
	default:
		return ""
	}
}

// decodeCursor parses a cursor produced by encodeCursor; "" is the first page
func decodeCursor(cursor string) (*qdrant.PointId, error) {
	if cursor == "" {
		return nil, nil
	}
	kind, value, ok := strings.Cut(cursor, ":")
	if !ok {
		return nil, fmt.Errorf("missing cursor kind")
	}
	switch kind {
	case "n":
		num, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric cursor: %w", err)
		}
		return qdrant.NewIDNum(num), nil
	case "u":
		if _, err := uuid.Parse(value); err != nil {
			return nil, fmt.Errorf("invalid uuid cursor: %w", err)
		}
		return qdrant.NewIDUUID(value), nil
	default:
		return nil, fmt.Errorf("unknown cursor kind %q", kind)
	}
}

// carPayload converts a car into Qdrant payload values
func carPayload(car model.Car) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{}
	setString := func(key, v string) {
		if v != "" {
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}
	}
	setDouble := func(key string, v *float64) {
		if v != nil {
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: *v}}
		}
	}

	setString(model.FieldModel, car.Model)
	setString(model.FieldGeneration, car.Generation)
	setString(model.FieldCity, car.City)
	setString(model.FieldMileage, car.Mileage)
	setDouble(model.FieldMileageNum, car.MileageNum)
	setString(model.FieldColor, car.Color)
	setString(model.FieldColorRaw, car.ColorRaw)
	setString(model.FieldEngine, car.Engine)
	setString(model.FieldPrice, car.Price)
	setDouble(model.FieldPriceNum, car.PriceNum)
	if car.Year != nil {
		payload[model.FieldYear] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(*car.Year)}}
	}
	setString(model.FieldURL, car.URL)
	setString(model.FieldDescription, car.Description)
	return payload
}

// carFromPayload reads a car back from a point
func carFromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) model.Car {
	car := model.Car{
		ID:          id.GetNum(),
		Model:       stringValue(payload[model.FieldModel]),
		Generation:  stringValue(payload[model.FieldGeneration]),
		City:        stringValue(payload[model.FieldCity]),
		Mileage:     stringValue(payload[model.FieldMileage]),
		MileageNum:  floatValue(payload[model.FieldMileageNum]),
		Color:       stringValue(payload[model.FieldColor]),
		ColorRaw:    stringValue(payload[model.FieldColorRaw]),
		Engine:      stringValue(payload[model.FieldEngine]),
		Price:       stringValue(payload[model.FieldPrice]),
		PriceNum:    floatValue(payload[model.FieldPriceNum]),
		URL:         stringValue(payload[model.FieldURL]),
		Description: stringValue(payload[model.FieldDescription]),
	}
	if year := floatValue(payload[model.FieldYear]); year != nil {
		y := int(*year)
		car.Year = &y
	}
	return car
}

// stringValue renders any scalar payload value as text
func stringValue(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	switch val := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(val.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(val.DoubleValue, 'f', -1, 64)
	default:
		return ""
	}
}

// floatValue reads a numeric payload value, accepting digit strings
func floatValue(v *qdrant.Value) *float64 {
	if v == nil {
		return nil
	}
	var f float64
	switch val := v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		f = float64(val.IntegerValue)
	case *qdrant.Value_DoubleValue:
		f = val.DoubleValue
	case *qdrant.Value_StringValue:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val.StringValue), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
