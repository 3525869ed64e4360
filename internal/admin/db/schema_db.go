package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ndmgate/internal/admin/model"
)

const schemaCollection = "schemas"

// SchemaStore 提供消息模式定义的增删改查
type SchemaStore struct {
	coll *mongo.Collection
}

// NewSchemaStore 构造存储并保证 name 唯一索引
func NewSchemaStore(m *MongoDB) (*SchemaStore, error) {
	coll := m.DB.Collection(schemaCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("创建唯一索引失败: %w", err)
	}

	return &SchemaStore{coll: coll}, nil
}

// Insert 新建一份模式定义
func (s *SchemaStore) Insert(ctx context.Context, def *model.SchemaDefinition) (primitive.ObjectID, error) {
	now := time.Now()
	def.ID = primitive.NewObjectID()
	def.CreatedAt = now
	def.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, def); err != nil {
		return primitive.NilObjectID, fmt.Errorf("插入模式定义失败: %w", err)
	}
	return def.ID, nil
}

// List 返回全部模式定义, 按名称排序
func (s *SchemaStore) List(ctx context.Context) ([]model.SchemaDefinition, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("查询模式定义失败: %w", err)
	}
	defer cursor.Close(ctx)

	var defs []model.SchemaDefinition
	if err := cursor.All(ctx, &defs); err != nil {
		return nil, fmt.Errorf("解码模式定义失败: %w", err)
	}
	return defs, nil
}

// Get 按 id 查询一份模式定义
func (s *SchemaStore) Get(ctx context.Context, id primitive.ObjectID) (*model.SchemaDefinition, error) {
	var def model.SchemaDefinition
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&def)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("模式定义不存在: %s", id.Hex())
		}
		return nil, fmt.Errorf("查询模式定义失败: %w", err)
	}
	return &def, nil
}

// Update 按 id 覆盖定义内容
func (s *SchemaStore) Update(ctx context.Context, id primitive.ObjectID, def *model.SchemaDefinition) error {
	update := bson.M{"$set": bson.M{
		"name":       def.Name,
		"definition": def.Definition,
		"updated_at": time.Now(),
	}}
	result, err := s.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("更新模式定义失败: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("模式定义不存在: %s", id.Hex())
	}
	return nil
}

// Delete 按 id 删除
func (s *SchemaStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("删除模式定义失败: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("模式定义不存在: %s", id.Hex())
	}
	return nil
}
