package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	milvusIDField       = "id"
	milvusDocumentField = "document"
	milvusMetadataField = "metadata"
	milvusVectorField   = "vector"
)

// MilvusOptions configures the milvus connection.
type MilvusOptions struct {
	Address  string
	Database string
	Username string
	Password string
}

// MilvusBackend stores records in milvus collections with an HNSW cosine index.
type MilvusBackend struct {
	opts   MilvusOptions
	client client.Client
}

// NewMilvusBackend creates an unopened backend.
func NewMilvusBackend(opts MilvusOptions) *MilvusBackend {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Database == "" {
		opts.Database = "default"
	}
	return &MilvusBackend{opts: opts}
}

func (b *MilvusBackend) Type() BackendType { return BackendMilvus }

func (b *MilvusBackend) Open(ctx context.Context) error {
	c, err := client.NewClient(ctx, client.Config{
		Address:  b.opts.Address,
		DBName:   b.opts.Database,
		Username: b.opts.Username,
		Password: b.opts.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to create milvus client: %w", err)
	}
	b.client = c
	return nil
}

func (b *MilvusBackend) Close() error {
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

// milvusName maps a collection name onto milvus' naming rules (letters,
// digits and underscores, not starting with a digit).
func milvusName(name string) string {
	n := strings.ReplaceAll(name, "-", "_")
	if n != "" && n[0] >= '0' && n[0] <= '9' {
		n = "c_" + n
	}
	return n
}

func (b *MilvusBackend) has(ctx context.Context, name string) (bool, error) {
	ok, err := b.client.HasCollection(ctx, milvusName(name))
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return ok, nil
}

func (b *MilvusBackend) EnsureCollection(ctx context.Context, name string, dim int) error {
	ok, err := b.has(ctx, name)
	if err != nil || ok {
		return err
	}
	coll := milvusName(name)
	schema := &entity.Schema{
		CollectionName: coll,
		Description:    "ragpipe collection " + name,
		Fields: []*entity.Field{
			{
				Name:       milvusIDField,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       milvusDocumentField,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
			{
				Name:     milvusMetadataField,
				DataType: entity.FieldTypeJSON,
			},
			{
				Name:       milvusVectorField,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
		},
	}
	if err := b.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	index, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	if err := b.client.CreateIndex(ctx, coll, milvusVectorField, index, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := b.client.LoadCollection(ctx, coll, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

func (b *MilvusBackend) DropCollection(ctx context.Context, name string) error {
	ok, err := b.has(ctx, name)
	if err != nil || !ok {
		return err
	}
	if err := b.client.DropCollection(ctx, milvusName(name)); err != nil {
		return fmt.Errorf("milvus drop collection: %w", err)
	}
	return nil
}

// Upsert writes records; milvus upserts by primary key.
func (b *MilvusBackend) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	coll := milvusName(name)
	ids := make([]string, len(records))
	docs := make([]string, len(records))
	mds := make([][]byte, len(records))
	vecs := make([][]float32, len(records))
	for i, r := range records {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		ids[i], docs[i], mds[i], vecs[i] = r.ID, r.Document, md, r.Embedding
	}
	_, err := b.client.Upsert(ctx, coll, "",
		entity.NewColumnVarChar(milvusIDField, ids),
		entity.NewColumnVarChar(milvusDocumentField, docs),
		entity.NewColumnJSONBytes(milvusMetadataField, mds),
		entity.NewColumnFloatVector(milvusVectorField, len(vecs[0]), vecs),
	)
	if err != nil {
		return fmt.Errorf("milvus upsert failed: %w", err)
	}
	if err := b.client.Flush(ctx, coll, false); err != nil {
		return fmt.Errorf("milvus flush failed: %w", err)
	}
	return nil
}

func (b *MilvusBackend) Query(ctx context.Context, name string, vector []float32, k int) ([]Match, error) {
	ok, err := b.has(ctx, name)
	if err != nil || !ok {
		return nil, err
	}
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("milvus search param: %w", err)
	}
	results, err := b.client.Search(ctx, milvusName(name), []string{}, "",
		[]string{milvusIDField, milvusDocumentField, milvusMetadataField},
		[]entity.Vector{entity.FloatVector(vector)},
		milvusVectorField, entity.COSINE, k, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	res := results[0]
	if res.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", res.Err)
	}
	records, err := recordsFromColumns(res.Fields, res.ResultCount)
	if err != nil {
		return nil, err
	}
	out := make([]Match, len(records))
	for i, r := range records {
		out[i] = Match{Record: r}
		if i < len(res.Scores) {
			out[i].Score = float64(res.Scores[i])
		}
	}
	return out, nil
}

func (b *MilvusBackend) Count(ctx context.Context, name string) (int, error) {
	ok, err := b.has(ctx, name)
	if err != nil || !ok {
		return 0, err
	}
	stats, err := b.client.GetCollectionStatistics(ctx, milvusName(name))
	if err != nil {
		return 0, fmt.Errorf("milvus statistics: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("milvus row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

func (b *MilvusBackend) Dimension(ctx context.Context, name string) (int, error) {
	ok, err := b.has(ctx, name)
	if err != nil || !ok {
		return 0, err
	}
	coll, err := b.client.DescribeCollection(ctx, milvusName(name))
	if err != nil {
		return 0, fmt.Errorf("milvus describe collection: %w", err)
	}
	for _, f := range coll.Schema.Fields {
		if f.Name == milvusVectorField {
			return strconv.Atoi(f.TypeParams["dim"])
		}
	}
	return 0, nil
}

func (b *MilvusBackend) Sample(ctx context.Context, name string, n int) ([]Record, error) {
	ok, err := b.has(ctx, name)
	if err != nil || !ok {
		return nil, err
	}
	rs, err := b.client.Query(ctx, milvusName(name), nil, milvusIDField+` != ""`,
		[]string{milvusIDField, milvusDocumentField, milvusMetadataField, milvusVectorField},
		client.WithLimit(int64(n)))
	if err != nil {
		return nil, fmt.Errorf("milvus query failed: %w", err)
	}
	count := 0
	if col := rs.GetColumn(milvusIDField); col != nil {
		count = col.Len()
	}
	return recordsFromColumns(rs, count)
}

func (b *MilvusBackend) Existing(ctx context.Context, name string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(ids) == 0 {
		return out, nil
	}
	ok, err := b.has(ctx, name)
	if err != nil || !ok {
		return out, err
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	expr := fmt.Sprintf("%s in [%s]", milvusIDField, strings.Join(quoted, ","))
	rs, err := b.client.Query(ctx, milvusName(name), nil, expr, []string{milvusIDField})
	if err != nil {
		return nil, fmt.Errorf("milvus query failed: %w", err)
	}
	if col, ok := rs.GetColumn(milvusIDField).(*entity.ColumnVarChar); ok {
		for _, id := range col.Data() {
			out[id] = true
		}
	}
	return out, nil
}

func recordsFromColumns(rs client.ResultSet, n int) ([]Record, error) {
	out := make([]Record, n)
	if col, ok := rs.GetColumn(milvusIDField).(*entity.ColumnVarChar); ok {
		for i, v := range col.Data() {
			if i < n {
				out[i].ID = v
			}
		}
	}
	if col, ok := rs.GetColumn(milvusDocumentField).(*entity.ColumnVarChar); ok {
		for i, v := range col.Data() {
			if i < n {
				out[i].Document = v
			}
		}
	}
	if col, ok := rs.GetColumn(milvusMetadataField).(*entity.ColumnJSONBytes); ok {
		for i, v := range col.Data() {
			if i >= n {
				break
			}
			if err := json.Unmarshal(v, &out[i].Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
	}
	if col, ok := rs.GetColumn(milvusVectorField).(*entity.ColumnFloatVector); ok {
		for i, v := range col.Data() {
			if i < n {
				out[i].Embedding = v
			}
		}
	}
	return out, nil
}
