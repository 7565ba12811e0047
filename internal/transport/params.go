package transport

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/wagiedev/bsl-mcp-server/internal/protocol"
)

// bodyParams decodes a JSON object body. An empty body yields no params.
func bodyParams(c *gin.Context) (protocol.Params, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, &protocol.ErrorObject{Code: protocol.CodeInvalidRequest, Message: "read body: " + err.Error()}
	}

	params := protocol.Params{}

	if len(bytes.TrimSpace(body)) == 0 {
		return params, nil
	}

	if err := json.Unmarshal(body, &params); err != nil || params == nil {
		return nil, &protocol.ErrorObject{Code: protocol.CodeInvalidParams, Message: "request body must be a JSON object"}
	}

	return params, nil
}

// queryParams turns the query string into params. Repeated keys become lists.
func queryParams(c *gin.Context) protocol.Params {
	query := c.Request.URL.Query()
	params := make(protocol.Params, len(query))

	for key, values := range query {
		if len(values) == 1 {
			params[key] = values[0]

			continue
		}

		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}

		params[key] = list
	}

	return params
}
