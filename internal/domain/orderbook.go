package domain

// OrderBook representa el libro de órdenes de un token.
type OrderBook struct {
	TokenID string
	Bids    []BookEntry // ordenados mayor a menor precio
	Asks    []BookEntry // ordenados menor a mayor precio
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid devuelve el mejor precio de compra (mayor bid).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk devuelve el mejor precio de venta (menor ask).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Midpoint devuelve el punto medio entre best bid y best ask.
// Con un solo lado disponible devuelve ese lado.
func (ob OrderBook) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	switch {
	case bid == 0 && ask == 0:
		return 0
	case bid == 0:
		return ask
	case ask == 0:
		return bid
	}
	return (bid + ask) / 2
}

// Spread devuelve el spread del book (ask - bid).
func (ob OrderBook) Spread() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// Levels devuelve el lado del book que consume una orden taker:
// asks para Buy, bids para Sell.
func (ob OrderBook) Levels(side Side) []BookEntry {
	if side == SideSell {
		return ob.Bids
	}
	return ob.Asks
}

// NotionalDepth devuelve el valor en USDC (size × price) de ambos lados del book.
// Se usa como proxy de liquidez cuando la API no la reporta.
func (ob OrderBook) NotionalDepth() float64 {
	var total float64
	for _, b := range ob.Bids {
		total += b.Size * b.Price
	}
	for _, a := range ob.Asks {
		total += a.Size * a.Price
	}
	return total
}
