package routes

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de resolución. No-match y método-no-permitido se distinguen
// para que el transporte elija 404 vs 405.
var (
	ErrNoRoute          = errors.New("routes: no matching route")
	ErrMethodNotAllowed = errors.New("routes: method not allowed")
)

// Match es el resultado de resolver un path concreto.
type Match struct {
	Config EndpointConfig
	// Pattern normalizado (no el path concreto), estable para logs,
	// métricas y redirects.
	Pattern string
	// Params extraídos de los segmentos ":name".
	Params map[string]string
}

type segment struct {
	literal string // vacío si es parámetro
	param   string // nombre sin ":"
}

type rule struct {
	cfg      EndpointConfig
	segments []segment
}

// Registry indexa las reglas por cantidad de segmentos. El matching es
// exacto en cantidad (sin wildcards que crucen segmentos) y los literales
// tienen prioridad sobre los parámetros: gana el prefijo literal más largo.
// Nada de regex por request.
type Registry struct {
	bySegs map[int][]rule
}

// NewRegistry compila los endpoint configs. Panic en patrones inválidos:
// esto corre una vez al arranque con configuración estática.
func NewRegistry(endpoints []EndpointConfig) *Registry {
	r := &Registry{bySegs: make(map[int][]rule)}
	for _, ec := range endpoints {
		segs, err := compile(ec.PathPattern)
		if err != nil {
			panic(fmt.Sprintf("routes: patrón inválido %q: %v", ec.PathPattern, err))
		}
		r.bySegs[len(segs)] = append(r.bySegs[len(segs)], rule{cfg: ec, segments: segs})
	}
	return r
}

func compile(pattern string) ([]segment, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, errors.New("debe empezar con /")
	}
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, errors.New("segmento vacío")
		}
		if strings.HasPrefix(p, ":") {
			name := p[1:]
			if name == "" {
				return nil, errors.New("parámetro sin nombre")
			}
			segs = append(segs, segment{param: name})
			continue
		}
		segs = append(segs, segment{literal: p})
	}
	return segs, nil
}

// match devuelve params si la regla matchea el path partido.
func (ru *rule) match(parts []string) (map[string]string, bool) {
	var params map[string]string
	for i, s := range ru.segments {
		if s.literal != "" {
			if parts[i] != s.literal {
				return nil, false
			}
			continue
		}
		if params == nil {
			params = make(map[string]string, 2)
		}
		params[s.param] = parts[i]
	}
	return params, true
}

// literalPrefixLen: largo del prefijo de segmentos literales, para la
// prioridad literal-sobre-parámetro.
func (ru *rule) literalPrefixLen() int {
	n := 0
	for _, s := range ru.segments {
		if s.literal == "" {
			break
		}
		n++
	}
	return n
}

func (ru *rule) literalCount() int {
	n := 0
	for _, s := range ru.segments {
		if s.literal != "" {
			n++
		}
	}
	return n
}

// Resolve busca el EndpointConfig más específico para (method, path).
// Path sin match ⇒ ErrNoRoute. Path con match pero método equivocado ⇒
// ErrMethodNotAllowed, para que el caller elija 404 vs 405.
func (r *Registry) Resolve(method, path string) (Match, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return Match{}, ErrNoRoute
	}
	parts := strings.Split(trimmed, "/")

	var (
		best       *rule
		bestParams map[string]string
		pathHit    bool
	)
	for i := range r.bySegs[len(parts)] {
		ru := &r.bySegs[len(parts)][i]
		params, ok := ru.match(parts)
		if !ok {
			continue
		}
		pathHit = true
		if ru.cfg.Method != method {
			continue
		}
		if best == nil || moreSpecific(ru, best) {
			best = ru
			bestParams = params
		}
	}
	if best == nil {
		if pathHit {
			return Match{}, ErrMethodNotAllowed
		}
		return Match{}, ErrNoRoute
	}
	return Match{Config: best.cfg, Pattern: best.cfg.PathPattern, Params: bestParams}, nil
}

// moreSpecific: gana el prefijo literal más largo; empate ⇒ más literales
// en total.
func moreSpecific(a, b *rule) bool {
	ap, bp := a.literalPrefixLen(), b.literalPrefixLen()
	if ap != bp {
		return ap > bp
	}
	return a.literalCount() > b.literalCount()
}

// Patterns devuelve todos los patrones registrados (para el ctl y tests).
func (r *Registry) Patterns() []EndpointConfig {
	var out []EndpointConfig
	for _, rules := range r.bySegs {
		for _, ru := range rules {
			out = append(out, ru.cfg)
		}
	}
	return out
}
