/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package dbconfig

import (
	"os"

	"gopkg.in/yaml.v3"

	liberr "github.com/sabouaram/mongocore/internal/errors"
)

// yamlDoc is the on-disk shape for a saved node-list/auth bundle. This is
// a SPEC_FULL.md supplement to the URI grammar of spec.md §6, for
// deployments that keep their topology in a config file.
type yamlDoc struct {
	Nodes []struct {
		Host string `yaml:"host"`
		Port uint16 `yaml:"port"`
	} `yaml:"nodes"`
	Auths []struct {
		DB       string `yaml:"db"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"auths"`
}

// LoadYAML reads a node-list/auth bundle from path.
func LoadYAML(path string) (NodeSet, []SavedAuth, liberr.Error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, liberr.New(liberr.ArgumentError, "loadYAML: reading "+path, err)
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, liberr.New(liberr.ArgumentError, "loadYAML: parsing "+path, err)
	}

	nodes := make(NodeSet, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes = append(nodes, NewEndpoint(n.Host, n.Port))
	}
	if err := nodes.Validate(); err != nil {
		return nil, nil, err
	}

	auths := make([]SavedAuth, 0, len(doc.Auths))
	for _, a := range doc.Auths {
		auths = append(auths, SavedAuth{DBName: a.DB, Username: a.Username, Password: a.Password})
	}

	return nodes, auths, nil
}
