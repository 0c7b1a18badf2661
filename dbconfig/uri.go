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
	"regexp"
	"strconv"
	"strings"

	liberr "github.com/sabouaram/mongocore/internal/errors"
)

const uriScheme = "mongodb://"

// specPattern is the grammar spec.md §6 gives for each comma-separated
// host spec: (([.\w]+):([\w]+)@)?([.\w]+)(:([\w]+))?(/([-\w]+))?
var specPattern = regexp.MustCompile(`^(?:([.\w]+):([\w]+)@)?([.\w]+)(?::([\w]+))?(?:/([-\w]+))?$`)

// ParseURI parses a mongodb://[user:pass@]host1[:port1][,host2[:port2]...][/db]
// URI into a NodeSet plus one SavedAuth per host spec that carried a full
// {user, pass, db} triple, per spec.md §4.6 and §6.
func ParseURI(uri string) (NodeSet, []SavedAuth, liberr.Error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return nil, nil, liberr.Newf(liberr.ArgumentError, "uri: missing %q scheme", uriScheme)
	}

	rest := strings.TrimPrefix(uri, uriScheme)
	if rest == "" {
		return nil, nil, liberr.New(liberr.ArgumentError, "uri: no host specified")
	}

	specs := strings.Split(rest, ",")
	nodes := make(NodeSet, 0, len(specs))
	auths := make([]SavedAuth, 0)

	for _, spec := range specs {
		m := specPattern.FindStringSubmatch(spec)
		if m == nil {
			return nil, nil, liberr.Newf(liberr.ArgumentError, "uri: malformed host spec %q", spec)
		}

		user, pass, host, portStr, db := m[1], m[2], m[3], m[4], m[5]

		present := 0
		if user != "" {
			present++
		}
		if pass != "" {
			present++
		}
		if db != "" {
			present++
		}
		if present != 0 && present != 3 {
			return nil, nil, liberr.Newf(liberr.ArgumentError, "uri: %q must specify user, pass and db together or none of them", spec)
		}

		port := DefaultPort
		if portStr != "" {
			p, err := strconv.ParseUint(portStr, 10, 16)
			if err != nil {
				return nil, nil, liberr.Newf(liberr.ArgumentError, "uri: invalid port %q", portStr)
			}
			port = uint16(p)
		}

		nodes = append(nodes, NewEndpoint(host, port))

		if present == 3 {
			auths = append(auths, SavedAuth{DBName: db, Username: user, Password: pass})
		}
	}

	if err := nodes.Validate(); err != nil {
		return nil, nil, err
	}

	return nodes, auths, nil
}
