package table

import "fmt"

// FillNull replaces every null with v. The column type is kept when v can be
// represented in it; otherwise the column widens (int to float, anything to
// string). A column with no values at all adopts v's type.
func (c *Column) FillNull(v Value) {
	if v.IsNull() {
		return
	}
	if c.NullCount() == c.Len() {
		c.Type = v.Type()
	}

	fill, ok := fillValue(c.Type, v)
	if !ok {
		target := TypeString
		if c.Type == TypeInt && v.Type() == TypeFloat {
			target = TypeFloat
		}
		c.widen(target)
		fill, _ = Convert(v, target)
	}

	for i, cur := range c.Values {
		if cur.IsNull() {
			c.Values[i] = fill
		}
	}
}

func fillValue(typ Type, v Value) (Value, bool) {
	if v.Type() == typ {
		return v, true
	}
	switch typ {
	case TypeFloat:
		if v.Type() == TypeInt {
			return Convert(v, TypeFloat)
		}
	case TypeInt:
		if i, ok := v.Int64(); ok {
			return Int(i), true
		}
	case TypeString:
		return Str(v.String()), true
	}
	return v, false
}

func (c *Column) widen(t Type) {
	for i, v := range c.Values {
		c.Values[i], _ = Convert(v, t)
	}
	c.Type = t
}

// CastTo converts every value to t. The column is left untouched and an
// error returned when any non-null value cannot be converted.
func (c *Column) CastTo(t Type) error {
	if c.Type == t {
		return nil
	}
	converted := make([]Value, len(c.Values))
	for i, v := range c.Values {
		out, ok := Convert(v, t)
		if !ok {
			return fmt.Errorf("column %q: cannot convert %q to %s at row %d", c.Name, v.String(), t, i)
		}
		converted[i] = out
	}
	c.Values = converted
	c.Type = t
	return nil
}

// Map replaces each non-null value with fn's result; the column type is unchanged
func (c *Column) Map(fn func(Value) Value) {
	for i, v := range c.Values {
		if !v.IsNull() {
			c.Values[i] = fn(v)
		}
	}
}

// Floats returns the non-null numeric values in row order
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := v.Float64(); ok {
			out = append(out, f)
		}
	}
	return out
}
