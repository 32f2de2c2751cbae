// Package config loads the pico.lua application definition: the
// listen port, the database, and the route table with its hooks and
// views.
package config

import (
	"fmt"
	"log"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"pico/catalog"
	"pico/hook"
	"pico/route"
	"pico/view"
)

// Config is the parsed application definition. The hook closures keep
// a reference into the engine's Lua state, so Close must outlive every
// request that can run a hook.
type Config struct {
	Port   string
	DB     string
	Routes map[string]*route.Route
	Tree   *route.Tree

	engine *hook.Engine
}

// Load evaluates the Lua config at path and parses the table it
// returns. The engine created here is owned by the returned Config.
func Load(path string) (*Config, error) {
	engine := hook.NewEngine()
	value, err := engine.DoFile(path)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("invalid pico config: %w", err)
	}

	cfg, err := parse(value, engine)
	if err != nil {
		engine.Close()
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Close() {
	if c == nil {
		return
	}
	c.engine.Close()
}

// VerifyFunctions checks that every function a route references is
// loaded in the catalog.
func (c *Config) VerifyFunctions(cat *catalog.Catalog) error {
	for key, rt := range c.Routes {
		for method, handler := range rt.Definitions {
			if handler.FunctionName == "" {
				continue
			}
			if _, ok := cat.Lookup(handler.FunctionName); !ok {
				return fmt.Errorf("invalid pico config: Route %s: %s references unknown function %s",
					key, method, handler.FunctionName)
			}
		}
	}
	return nil
}

func parse(value lua.LValue, engine *hook.Engine) (*Config, error) {
	root, ok := value.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("invalid pico config: config file did not return a table")
	}

	cfg := &Config{
		Routes: make(map[string]*route.Route),
		Tree:   route.NewTree(),
		engine: engine,
	}

	switch port := root.RawGetString("PORT").(type) {
	case *lua.LNilType:
		log.Printf("[config] PORT not specified, using port 8080")
		cfg.Port = "8080"
	case lua.LString:
		cfg.Port = string(port)
	case lua.LNumber:
		cfg.Port = port.String()
	default:
		return nil, fmt.Errorf("invalid pico config: PORT field is not a string")
	}

	db, ok := root.RawGetString("DB").(lua.LString)
	if !ok {
		return nil, fmt.Errorf("invalid pico config: DB field is not a string")
	}
	cfg.DB = string(db)

	routesTable, ok := root.RawGetString("ROUTES").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("invalid pico config: ROUTES field is not a table")
	}

	var parseErr error
	routesTable.ForEach(func(k, v lua.LValue) {
		if parseErr != nil {
			return
		}
		path, ok := k.(lua.LString)
		if !ok {
			parseErr = fmt.Errorf("invalid pico config: ROUTES is not a table with String, Table key value pairs")
			return
		}
		handlers, ok := v.(*lua.LTable)
		if !ok {
			parseErr = fmt.Errorf("invalid pico config: ROUTES is not a table with String, Table key value pairs")
			return
		}
		parseErr = cfg.addRoute(string(path), handlers, engine)
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return cfg, nil
}

func (c *Config) addRoute(path string, handlers *lua.LTable, engine *hook.Engine) error {
	definitions := make(map[route.Method]route.RouteHandler)

	var parseErr error
	handlers.ForEach(func(k, v lua.LValue) {
		if parseErr != nil {
			return
		}
		methodName, ok := k.(lua.LString)
		if !ok {
			parseErr = fmt.Errorf("invalid pico config: Route %s is not defined with a method String, Table key value pair", path)
			return
		}
		method, ok := route.ParseMethod(string(methodName))
		if !ok {
			parseErr = fmt.Errorf("invalid pico config: Route %s: %s is not a supported method", path, methodName)
			return
		}
		handlerTable, ok := v.(*lua.LTable)
		if !ok {
			parseErr = fmt.Errorf("invalid pico config: Route %s is not defined with a method String, Table key value pair", path)
			return
		}

		handler, err := parseHandler(path, string(method), handlerTable, engine)
		if err != nil {
			parseErr = err
			return
		}
		definitions[method] = handler
	})
	if parseErr != nil {
		return parseErr
	}

	key := route.Key(path)
	if existing, ok := c.Routes[key]; ok {
		for method := range definitions {
			if _, dup := existing.Definitions[method]; dup {
				return fmt.Errorf("invalid pico config: Route %s: %s is already defined by %s",
					path, method, existing.Path)
			}
			existing.Definitions[method] = definitions[method]
		}
	} else {
		c.Routes[key] = &route.Route{Path: path, Definitions: definitions}
	}

	if err := c.Tree.Insert(path); err != nil {
		return fmt.Errorf("invalid pico config: %w", err)
	}
	return nil
}

func parseHandler(path, method string, t *lua.LTable, engine *hook.Engine) (route.RouteHandler, error) {
	var handler route.RouteHandler

	switch sql := t.RawGetString("SQL").(type) {
	case *lua.LNilType:
	case lua.LString:
		// Functions may be referenced with or without the .sql suffix.
		handler.FunctionName = strings.TrimSuffix(string(sql), ".sql")
	default:
		return handler, fmt.Errorf("invalid pico config: Route %s: %s has SQL but is not a string", path, method)
	}

	switch v := t.RawGetString("VIEW").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		parsed, err := parseView(path, method, v)
		if err != nil {
			return handler, err
		}
		handler.View = parsed
	default:
		return handler, fmt.Errorf("invalid pico config: Route %s: %s has VIEW but is not properly shaped", path, method)
	}

	for _, binding := range []struct {
		key  string
		dest *hook.Hook
	}{
		{"PREPROCESS", &handler.PreProcess},
		{"POSTPROCESS", &handler.PostProcess},
		{"SETJWT", &handler.SetSession},
	} {
		switch fn := t.RawGetString(binding.key).(type) {
		case *lua.LNilType:
		case *lua.LFunction:
			*binding.dest = engine.Bind(fn)
		default:
			return handler, fmt.Errorf("invalid pico config: Route %s: %s has %s but is not a function",
				path, method, binding.key)
		}
	}

	return handler, nil
}

func parseView(path, method string, t *lua.LTable) (*view.View, error) {
	v := &view.View{}

	for i := 1; i <= t.MaxN(); i++ {
		entityTable, ok := t.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("invalid pico config: Route %s: %s VIEW is not a sequence of entity tables", path, method)
		}
		entityType, ok := entityTable.RawGetString("TYPE").(lua.LString)
		if !ok {
			return nil, fmt.Errorf("invalid pico config: Route %s: %s VIEW entity does not have a TYPE", path, method)
		}

		entity, err := parseEntity(path, method, string(entityType), entityTable)
		if err != nil {
			return nil, err
		}
		v.Entities = append(v.Entities, entity)
	}
	return v, nil
}

func parseEntity(path, method, entityType string, t *lua.LTable) (view.Entity, error) {
	switch entityType {
	case "DATA":
		return view.Data{}, nil

	case "LINKS":
		fields, ok := t.RawGetString("FIELDS").(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("invalid pico config: Route %s: %s LINKS view entity is missing FIELDS", path, method)
		}
		var links view.Links
		for i := 1; i <= fields.MaxN(); i++ {
			item, ok := fields.RawGetInt(i).(lua.LString)
			if !ok {
				return nil, fmt.Errorf("invalid pico config: Route %s: %s LINKS FIELDS is not a sequence of strings", path, method)
			}
			links.Items = append(links.Items, string(item))
		}
		return links, nil

	case "POSTFORM", "PUTFORM", "DELETEFORM":
		target, ok := t.RawGetString("TARGET").(lua.LString)
		if !ok {
			return nil, fmt.Errorf("invalid pico config: Route %s: %s %s view TARGET is not a string", path, method, entityType)
		}
		form := view.Form{
			Target: string(target),
			Method: map[string]string{
				"POSTFORM":   "post",
				"PUTFORM":    "put",
				"DELETEFORM": "delete",
			}[entityType],
		}
		if title, ok := t.RawGetString("TITLE").(lua.LString); ok {
			form.Title = string(title)
		}
		fields, ok := t.RawGetString("FIELDS").(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("invalid pico config: Route %s: %s %s view FIELDS is not a table of field values", path, method, entityType)
		}
		for i := 1; i <= fields.MaxN(); i++ {
			fieldTable, ok := fields.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("invalid pico config: Route %s: %s %s view FIELDS is not a table of field values", path, method, entityType)
			}
			field, err := parseField(path, method, entityType, fieldTable)
			if err != nil {
				return nil, err
			}
			form.Fields = append(form.Fields, field)
		}
		return form, nil

	case "TABLE":
		columns, ok := t.RawGetString("COLUMNS").(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("invalid pico config: Route %s: %s TABLE view entity is missing COLUMNS", path, method)
		}
		var table view.Table
		for i := 1; i <= columns.MaxN(); i++ {
			colTable, ok := columns.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("invalid pico config: Route %s: %s TABLE COLUMNS is not a sequence of column tables", path, method)
			}
			name, ok := colTable.RawGetString("name").(lua.LString)
			if !ok {
				return nil, fmt.Errorf("invalid pico config: Route %s: %s TABLE column is missing a name", path, method)
			}
			col := view.Column{Name: string(name)}
			if accessor, ok := colTable.RawGetString("accessor").(lua.LString); ok {
				col.Accessor = string(accessor)
			}
			table.Columns = append(table.Columns, col)
		}
		return table, nil

	default:
		return nil, fmt.Errorf("invalid pico config: Route %s: %s has unknown view type: %s", path, method, entityType)
	}
}

func parseField(path, method, entityType string, t *lua.LTable) (view.Field, error) {
	var field view.Field

	id, ok := t.RawGetString("id").(lua.LString)
	if !ok {
		return field, fmt.Errorf("invalid pico config: Route %s: %s %s view field is missing an id", path, method, entityType)
	}
	fieldType, ok := t.RawGetString("type").(lua.LString)
	if !ok {
		return field, fmt.Errorf("invalid pico config: Route %s: %s %s view field is missing a type", path, method, entityType)
	}
	field.ID = string(id)
	field.Type = string(fieldType)
	if label, ok := t.RawGetString("label").(lua.LString); ok {
		field.Label = string(label)
	}
	if value, ok := t.RawGetString("value").(lua.LString); ok {
		field.Value = string(value)
	}
	return field, nil
}
