package messaging

const (
	// ProductsStream is the JetStream stream holding every products.* subject.
	ProductsStream = "PRODUCTS"

	ProductsStockAdjustedSubject = "products.stock.adjusted"
)
