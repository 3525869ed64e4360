package ndm

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ndmgate/internal/kvn"
)

// SchemaFile 是消息模式的外部定义, 运维通过 yaml 文件或 admin api
// 注册新消息类型而无需重新编译
type SchemaFile struct {
	Type           string     `yaml:"type" json:"type" bson:"type"`
	VersionKeyword string     `yaml:"version_keyword" json:"version_keyword" bson:"version_keyword"`
	Fields         []FieldDef `yaml:"fields" json:"fields" bson:"fields"`
}

// FieldDef 是模式定义文件中的一个字段
type FieldDef struct {
	Name     string   `yaml:"name" json:"name" bson:"name"`
	Keywords []string `yaml:"keywords" json:"keywords" bson:"keywords"`
	Kind     string   `yaml:"kind" json:"kind" bson:"kind"` // string|integer|float|datetime
	WithUnit bool     `yaml:"with_unit" json:"with_unit" bson:"with_unit"`
	Required bool     `yaml:"required" json:"required" bson:"required"`
	Default  any      `yaml:"default" json:"default,omitempty" bson:"default,omitempty"`
	Pair     *PairDef `yaml:"pair" json:"pair,omitempty" bson:"pair,omitempty"`
}

// PairDef 是数值+单位复合字段的两个目标属性名
type PairDef struct {
	ValueName string `yaml:"value_name" json:"value_name" bson:"value_name"`
	UnitName  string `yaml:"unit_name" json:"unit_name" bson:"unit_name"`
}

// BuildSchema 校验定义并转换成 kvn 模式
func (f *SchemaFile) BuildSchema() (*kvn.Schema, error) {
	if f.Type == "" {
		return nil, fmt.Errorf("模式定义缺少 type")
	}
	if f.VersionKeyword == "" {
		return nil, fmt.Errorf("模式定义 %s 缺少 version_keyword", f.Type)
	}
	if len(f.Fields) == 0 {
		return nil, fmt.Errorf("模式定义 %s 没有字段", f.Type)
	}

	fields := make([]kvn.Field, 0, len(f.Fields))
	for i, def := range f.Fields {
		if def.Name == "" {
			return nil, fmt.Errorf("模式定义 %s 第 %d 个字段缺少 name", f.Type, i)
		}
		if len(def.Keywords) == 0 {
			return nil, fmt.Errorf("模式定义 %s 字段 %s 缺少 keywords", f.Type, def.Name)
		}
		field := kvn.Field{
			Name:     def.Name,
			Keywords: def.Keywords,
			Kind:     kvn.KindFromString(def.Kind),
			WithUnit: def.WithUnit,
			Required: def.Required,
			Default:  def.Default,
		}
		if def.Pair != nil {
			if def.Pair.ValueName == "" || def.Pair.UnitName == "" {
				return nil, fmt.Errorf("模式定义 %s 字段 %s 的 pair 属性名不完整", f.Type, def.Name)
			}
			field.Pair = &kvn.PairSchema{ValueName: def.Pair.ValueName, UnitName: def.Pair.UnitName}
		}
		fields = append(fields, field)
	}

	return &kvn.Schema{Name: f.Type, Fields: fields}, nil
}

// Message 把定义构建成可注册的消息类型
func (f *SchemaFile) Message() (*Message, error) {
	schema, err := f.BuildSchema()
	if err != nil {
		return nil, err
	}
	return &Message{Type: f.Type, VersionKeyword: f.VersionKeyword, Schema: schema}, nil
}

// LoadSchemaFile 从 yaml 文件读取一份模式定义
func LoadSchemaFile(path string) (*SchemaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取模式定义文件失败 %s: %w", path, err)
	}
	var file SchemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析模式定义文件失败 %s: %w", path, err)
	}
	return &file, nil
}

// LoadSchemaDir 加载并注册目录下的所有 yaml 模式定义, 返回注册的数量
func LoadSchemaDir(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		file, err := LoadSchemaFile(path)
		if err != nil {
			return err
		}
		m, err := file.Message()
		if err != nil {
			return fmt.Errorf("模式定义文件 %s: %w", path, err)
		}
		Register(m)
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}
