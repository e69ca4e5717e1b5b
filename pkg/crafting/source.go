package crafting

import (
	"context"
	"fmt"

	"github.com/maicraft/maicraft-go/pkg/bridge"
)

// BridgeSource fetches raw recipes through the game bridge.
type BridgeSource struct {
	tools bridge.ToolCaller
}

var _ RecipeSource = (*BridgeSource)(nil)

// NewBridgeSource wraps the tool caller as a RecipeSource.
func NewBridgeSource(tools bridge.ToolCaller) *BridgeSource {
	return &BridgeSource{tools: tools}
}

// Recipes queries query_raw_recipe and decodes the data array. An ok:false
// envelope means the item has no recipes, not a transport failure.
func (s *BridgeSource) Recipes(ctx context.Context, item string, useTable bool) ([]RawRecipe, error) {
	res, err := bridge.QueryRawRecipe(ctx, s.tools, item, useTable)
	if err != nil {
		return nil, fmt.Errorf("query recipe for %s: %w", item, err)
	}
	if !res.OK {
		return nil, nil
	}
	list, ok := res.DataList()
	if !ok {
		return nil, nil
	}
	out := make([]RawRecipe, 0, len(list))
	for _, v := range list {
		if r, decoded := DecodeRecipe(v); decoded {
			out = append(out, r)
		}
	}
	return out, nil
}
