package vectorstore

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// QdrantOptions configures the qdrant gRPC connection.
type QdrantOptions struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantBackend stores records as qdrant points. Point ids are name-based
// UUIDs derived from the record id, which is kept in the payload.
type QdrantBackend struct {
	opts        QdrantOptions
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
}

// NewQdrantBackend creates an unopened backend.
func NewQdrantBackend(opts QdrantOptions) *QdrantBackend {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		opts.Port = 6334
	}
	return &QdrantBackend{opts: opts}
}

func (b *QdrantBackend) Type() BackendType { return BackendQdrant }

// Open dials the gRPC endpoint and checks it by listing collections.
func (b *QdrantBackend) Open(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", b.opts.Host, b.opts.Port)
	creds := insecure.NewCredentials()
	if b.opts.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}
	b.conn = conn
	b.collections = qdrant.NewCollectionsClient(conn)
	b.points = qdrant.NewPointsClient(conn)
	if _, err := b.collections.List(b.auth(ctx), &qdrant.ListCollectionsRequest{}); err != nil {
		_ = conn.Close()
		b.conn = nil
		return fmt.Errorf("failed to list qdrant collections: %w", err)
	}
	return nil
}

func (b *QdrantBackend) Close() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *QdrantBackend) auth(ctx context.Context) context.Context {
	if b.opts.APIKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", b.opts.APIKey)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (b *QdrantBackend) exists(ctx context.Context, name string) (bool, error) {
	resp, err := b.collections.CollectionExists(b.auth(ctx), &qdrant.CollectionExistsRequest{CollectionName: name})
	if err != nil {
		return false, fmt.Errorf("qdrant collection exists: %w", err)
	}
	return resp.GetResult().GetExists(), nil
}

func (b *QdrantBackend) EnsureCollection(ctx context.Context, name string, dim int) error {
	ok, err := b.exists(ctx, name)
	if err != nil || ok {
		return err
	}
	_, err = b.collections.Create(b.auth(ctx), &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dim),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

func (b *QdrantBackend) DropCollection(ctx context.Context, name string) error {
	ok, err := b.exists(ctx, name)
	if err != nil || !ok {
		return err
	}
	if _, err := b.collections.Delete(b.auth(ctx), &qdrant.DeleteCollection{CollectionName: name}); err != nil {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	return nil
}

func pointID(collection, id string) *qdrant.PointId {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte(collection+"/"+id))
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: u.String()}}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func (b *QdrantBackend) Upsert(ctx context.Context, name string, records []Record) error {
	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		md := make(map[string]*qdrant.Value, len(r.Metadata))
		for k, v := range r.Metadata {
			md[k] = stringValue(v)
		}
		points[i] = &qdrant.PointStruct{
			Id: pointID(name, r.ID),
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: r.Embedding}},
			},
			Payload: map[string]*qdrant.Value{
				"id":       stringValue(r.ID),
				"document": stringValue(r.Document),
				"metadata": {Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: md}}},
			},
		}
	}
	wait := true
	if _, err := b.points.Upsert(b.auth(ctx), &qdrant.UpsertPoints{CollectionName: name, Wait: &wait, Points: points}); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func recordFromPayload(payload map[string]*qdrant.Value) Record {
	r := Record{
		ID:       payload["id"].GetStringValue(),
		Document: payload["document"].GetStringValue(),
		Metadata: map[string]string{},
	}
	for k, v := range payload["metadata"].GetStructValue().GetFields() {
		r.Metadata[k] = v.GetStringValue()
	}
	return r
}

func (b *QdrantBackend) Query(ctx context.Context, name string, vector []float32, k int) ([]Match, error) {
	resp, err := b.points.Search(b.auth(ctx), &qdrant.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	out := make([]Match, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		out[i] = Match{Record: recordFromPayload(p.GetPayload()), Score: float64(p.GetScore())}
	}
	return out, nil
}

func (b *QdrantBackend) Count(ctx context.Context, name string) (int, error) {
	exact := true
	resp, err := b.points.Count(b.auth(ctx), &qdrant.CountPoints{CollectionName: name, Exact: &exact})
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (b *QdrantBackend) Dimension(ctx context.Context, name string) (int, error) {
	resp, err := b.collections.Get(b.auth(ctx), &qdrant.GetCollectionInfoRequest{CollectionName: name})
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("qdrant collection info: %w", err)
	}
	return int(resp.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()), nil
}

func (b *QdrantBackend) Sample(ctx context.Context, name string, n int) ([]Record, error) {
	limit := uint32(n)
	resp, err := b.points.Scroll(b.auth(ctx), &qdrant.ScrollPoints{
		CollectionName: name,
		Limit:          &limit,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &qdrant.WithVectorsSelector{SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: true}},
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("qdrant scroll: %w", err)
	}
	out := make([]Record, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		out[i] = recordFromPayload(p.GetPayload())
		out[i].Embedding = p.GetVectors().GetVector().GetData()
	}
	return out, nil
}

func (b *QdrantBackend) Existing(ctx context.Context, name string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(ids) == 0 {
		return out, nil
	}
	pids := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pids[i] = pointID(name, id)
	}
	resp, err := b.points.Get(b.auth(ctx), &qdrant.GetPoints{
		CollectionName: name,
		Ids:            pids,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if isNotFound(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("qdrant get points: %w", err)
	}
	for _, p := range resp.GetResult() {
		out[p.GetPayload()["id"].GetStringValue()] = true
	}
	return out, nil
}
