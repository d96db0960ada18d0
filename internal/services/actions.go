package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/rs/zerolog"

	"partschat/internal/llm"
	"partschat/pkg"
)

// Bundle groups the backing services behind the action registry.
type Bundle struct {
	Search    PartsSearch
	Inventory *Inventory
	Tickets   *Tickets
}

// NewActionRegistry wires the Spanish-named action catalog over the
// backing services. Every name here must exist in the directive action
// catalog for the completion service to see it.
func NewActionRegistry(b Bundle, log zerolog.Logger) (*llm.Registry, error) {
	registry := llm.NewRegistry(log)

	searchTool, err := productSearchTool(b.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to build product search tool: %w", err)
	}
	registry.Register(llm.FromInvokable(
		"buscarProductoPorTermino",
		"Buscar piezas por término, marca y modelo",
		searchTool,
	))

	registry.Register(llm.NewFuncAction("consultarInventario",
		"Buscar productos específicos en inventario",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args struct {
				Codigo string `json:"codigo"`
			}
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			entry, err := b.Inventory.Lookup(ctx, args.Codigo)
			if err != nil {
				return nil, "", err
			}
			return entry, "", nil
		}))

	registry.Register(llm.NewFuncAction("consultarInventarioGeneral",
		"Ver el inventario completo",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			entries, err := b.Inventory.All(ctx)
			if err != nil {
				return nil, "", err
			}
			return entries, "", nil
		}))

	registry.Register(llm.NewFuncAction("buscarYConsultarInventario",
		"Búsqueda inteligente con consulta de inventario",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args searchArgs
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			res, err := b.Search.Search(ctx, args.Pieza, args.carInfo(), pkg.SearchOptions{Limit: 5, MinConfidence: 0.4})
			if err != nil {
				return nil, "", err
			}
			withStock := make([]map[string]any, 0, len(res.Results))
			for _, part := range res.Results {
				item := map[string]any{"part": part}
				if entry, err := b.Inventory.Lookup(ctx, part.Code); err == nil {
					item["stock"] = entry
				}
				withStock = append(withStock, item)
			}
			return withStock, "", nil
		}))

	registry.Register(llm.NewFuncAction("generarTicket",
		"Generar ticket de compra",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args struct {
				Items []struct {
					Codigo   string `json:"codigo"`
					Cantidad int    `json:"cantidad"`
				} `json:"items"`
			}
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			items := make([]TicketItem, 0, len(args.Items))
			for _, item := range args.Items {
				items = append(items, TicketItem{Code: item.Codigo, Quantity: item.Cantidad})
			}
			ticket, err := b.Tickets.Create(ctx, exec.UserID, exec.PointOfSaleID, items)
			if err != nil {
				return nil, "", err
			}
			return ticket, "Confirma la compra para apartar las piezas.", nil
		}))

	registry.Register(llm.NewFuncAction("confirmarCompra",
		"Confirmar la transacción",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args struct {
				TicketID string `json:"ticket_id"`
			}
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			ticket, err := b.Tickets.Confirm(ctx, args.TicketID)
			if err != nil {
				return nil, "", err
			}
			return ticket, "", nil
		}))

	registry.Register(llm.NewFuncAction("buscarPorVin",
		"Buscar refacciones por número VIN",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args struct {
				VIN   string `json:"vin"`
				Pieza string `json:"pieza"`
			}
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			car, err := decodeVIN(args.VIN)
			if err != nil {
				return nil, "", err
			}
			if args.Pieza == "" {
				return car, "Pregunta qué pieza necesita para este vehículo.", nil
			}
			res, err := b.Search.Search(ctx, args.Pieza, *car, pkg.SearchOptions{Limit: 5, MinConfidence: 0.4})
			if err != nil {
				return nil, "", err
			}
			return map[string]any{"vehicle": car, "search": res}, "", nil
		}))

	registry.Register(llm.NewFuncAction("solicitarAsesor",
		"Conectar con un asesor humano",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			return map[string]any{
				"queued":           true,
				"point_of_sale_id": exec.PointOfSaleID,
			}, "Un asesor se pondrá en contacto en breve.", nil
		}))

	registry.Register(llm.NewFuncAction("procesarEnvio",
		"Procesar envío a domicilio",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args struct {
				Direccion string `json:"direccion"`
				TicketID  string `json:"ticket_id"`
			}
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			if args.Direccion == "" {
				return nil, "", fmt.Errorf("shipping needs an address")
			}
			return map[string]any{
				"ticket_id": args.TicketID,
				"address":   args.Direccion,
				"eta_days":  2,
			}, "", nil
		}))

	registry.Register(llm.NewFuncAction("recopilarDatosCliente",
		"Recopilar datos del cliente y su vehículo",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args map[string]any
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			return args, "Confirma con el cliente los datos capturados.", nil
		}))

	registry.Register(llm.NewFuncAction("obtenerDetallesProducto",
		"Obtener detalles de un producto",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args struct {
				Codigo string `json:"codigo"`
			}
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			entry, err := b.Inventory.Lookup(ctx, args.Codigo)
			if err != nil {
				return nil, "", err
			}
			return entry, "", nil
		}))

	registry.Register(llm.NewFuncAction("sugerirAlternativas",
		"Sugerir piezas alternativas",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args searchArgs
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			res, err := b.Search.Search(ctx, args.Pieza, args.carInfo(), pkg.SearchOptions{Limit: 3, MinConfidence: 0.3})
			if err != nil {
				return nil, "", err
			}
			return res, "", nil
		}))

	registry.Register(llm.NewFuncAction("confirmarProductoSeleccionado",
		"Confirmar la pieza seleccionada",
		func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
			var args struct {
				Codigo string `json:"codigo"`
			}
			if err := decodeArgs(argsJSON, &args); err != nil {
				return nil, "", err
			}
			entry, err := b.Inventory.Lookup(ctx, args.Codigo)
			if err != nil {
				return nil, "", err
			}
			return map[string]any{
				"confirmed": true,
				"stock":     entry,
			}, "Ofrece generar el ticket de compra.", nil
		}))

	return registry, nil
}

type searchArgs struct {
	Pieza  string `json:"pieza"`
	Marca  string `json:"marca"`
	Modelo string `json:"modelo"`
	Año    int    `json:"año"`
}

func (a searchArgs) carInfo() pkg.CarInfo {
	return pkg.CarInfo{Brand: a.Marca, Model: a.Modelo, Year: a.Año}
}

// productSearchTool exposes the parts search through eino's tool layer.
func productSearchTool(search PartsSearch) (tool.InvokableTool, error) {
	t, err := utils.InferTool("buscarProductoPorTermino",
		"Buscar piezas por término, marca y modelo",
		func(ctx context.Context, args searchArgs) (string, error) {
			res, err := search.Search(ctx, args.Pieza, args.carInfo(), pkg.SearchOptions{Limit: 5, MinConfidence: 0.4})
			if err != nil {
				return "", err
			}
			if !res.Success {
				return fmt.Sprintf("No encontré piezas de %s.", res.NormalizedTerm), nil
			}
			lines := make([]string, 0, len(res.Results))
			for i, part := range res.Results {
				lines = append(lines, fmt.Sprintf("%d. Clave: %s | Marca: %s | %s", i+1, part.Code, part.Brand, part.Description))
			}
			return strings.Join(lines, "\n"), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to infer search tool schema: %w", err)
	}
	return t, nil
}

func decodeArgs(argsJSON string, out any) error {
	if strings.TrimSpace(argsJSON) == "" {
		argsJSON = "{}"
	}
	if err := sonic.UnmarshalString(argsJSON, out); err != nil {
		return fmt.Errorf("failed to decode action arguments: %w", err)
	}
	return nil
}

// decodeVIN is a stub decoder keyed off the world manufacturer prefix.
func decodeVIN(vin string) (*pkg.CarInfo, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	if len(vin) != 17 {
		return nil, fmt.Errorf("invalid VIN: %s", vin)
	}

	car := &pkg.CarInfo{VIN: vin}
	switch vin[:2] {
	case "1H", "2H", "JH":
		car.Brand = "honda"
		car.Model = "civic"
	case "JT", "4T", "5T":
		car.Brand = "toyota"
		car.Model = "corolla"
	case "1N", "JN", "3N":
		car.Brand = "nissan"
		car.Model = "sentra"
	case "3V", "WV":
		car.Brand = "volkswagen"
		car.Model = "jetta"
	default:
		car.Brand = "desconocida"
	}
	return car, nil
}
