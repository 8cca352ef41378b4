package inject

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Placeholder tokens the templater resolves in the core script.
const (
	phIP       = "client.ip"
	phID       = "client.id"
	phAgent    = "client.agent"
	phHeaders  = "client.headers"
	phPlatform = "client.platform"
	phOS       = "client.os"
)

const defaultCore = `(function(){window.client={ip:client.ip,id:client.id,agent:client.agent,headers:client.headers,platform:client.platform,os:client.os}})()`

const defaultDebugCore = `(function(){window.client={ip:client.ip,id:client.id,agent:client.agent,headers:client.headers,platform:client.platform,os:client.os};console.log("client",window.client)})()`

// Templater fills the core script template with per-client metadata.
// Purely mechanical; the only branch is the standard/debug variant choice.
type Templater struct {
	core      string
	debugCore string
}

func NewTemplater(core, debugCore string) *Templater {
	if core == "" {
		core = defaultCore
	}
	if debugCore == "" {
		debugCore = defaultDebugCore
	}
	return &Templater{core: core, debugCore: debugCore}
}

// LoadTemplater reads template files; empty paths fall back to the
// built-in scripts.
func LoadTemplater(corePath, debugPath string) (*Templater, error) {
	var core, debugCore string
	if corePath != "" {
		data, err := os.ReadFile(corePath)
		if err != nil {
			return nil, fmt.Errorf("reading core template: %w", err)
		}
		core = string(data)
	}
	if debugPath != "" {
		data, err := os.ReadFile(debugPath)
		if err != nil {
			return nil, fmt.Errorf("reading debug template: %w", err)
		}
		debugCore = string(data)
	}
	return NewTemplater(core, debugCore), nil
}

// Render substitutes the client's metadata into the template selected by
// the descriptor's debug flag. Each placeholder is replaced once, with a
// JSON-encoded value. The client's own User-Agent header is withheld from
// the echoed header set (it is already exposed as client.agent).
func (t *Templater) Render(desc *SessionDescriptor, client *ClientInfo) string {
	script := t.core
	if desc.Debug {
		script = t.debugCore
	}

	headers := make(map[string]string, len(client.Headers))
	for k, v := range client.Headers {
		headers[k] = v
	}
	delete(headers, "User-Agent")

	script = strings.Replace(script, phIP, jsonValue(client.IP), 1)
	script = strings.Replace(script, phID, jsonValue(desc.ID), 1)
	script = strings.Replace(script, phAgent, jsonValue(client.UserAgent), 1)
	script = strings.Replace(script, phHeaders, jsonValue(headers), 1)
	script = strings.Replace(script, phPlatform, jsonValue(client.Platform), 1)
	script = strings.Replace(script, phOS, jsonValue(client.OS), 1)
	return script
}

func jsonValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
