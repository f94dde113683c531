package domain

// CartItem is a single product line in a customer's cart. Prices are VND,
// which has no fractional unit.
type CartItem struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Image    string `json:"image"`
}

// ComboProduct is one constituent of a combo, kept in selection order.
type ComboProduct struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image"`
}

// ComboItem is a bundled set of products sold as one purchasable unit.
type ComboItem struct {
	ComboID  string         `json:"combo_id"`
	Name     string         `json:"name"`
	Image    string         `json:"image"`
	Quantity int            `json:"quantity"`
	Price    int64          `json:"price"`
	Products []ComboProduct `json:"products"`
}

type Cart struct {
	ID     string      `json:"id"`
	Items  []CartItem  `json:"items"`
	Combos []ComboItem `json:"combos"`
}

// Subtotal is recomputed from the line items on every call and never cached.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += int64(item.Quantity) * item.Price
	}
	for _, combo := range c.Combos {
		total += int64(combo.Quantity) * combo.Price
	}
	return total
}

// Lines is the number of distinct entries (items plus combos) in the cart.
func (c *Cart) Lines() int {
	return len(c.Items) + len(c.Combos)
}

func (c *Cart) Empty() bool {
	return c.Lines() == 0
}
