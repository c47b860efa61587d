package decisionctx

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var contextSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("decision_context.json", bytes.NewReader(schemaJSON)); err != nil {
		panic(err)
	}
	return c.MustCompile("decision_context.json")
}()

// Validate 对序列化后的上下文做 schema 自检。
// 下游是外部推理协作方，边界数据必须在出手前验证。
func (c *DecisionContext) Validate() error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("上下文序列化失败: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := contextSchema.Validate(v); err != nil {
		return fmt.Errorf("上下文未通过 schema 校验: %w", err)
	}
	return nil
}
