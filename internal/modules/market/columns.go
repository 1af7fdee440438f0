package market

import "github.com/dalia-app/dalia/internal/clients/databursatil"

var statementColumns = map[databursatil.StatementKind][]string{
	databursatil.StatementCashFlow: {
		"flujo_operacion", "utilidad_neta", "depreciacion", "cambio_inventarios", "cambio_cxc",
		"cambio_cxp", "impuestos_pagados", "intereses_pagados", "flujo_inversion", "capex",
		"venta_activos", "compra_intangibles", "flujo_financiamiento", "prestamos_obtenidos",
		"pago_deuda", "dividendos_pagados", "recompras", "cambio_efectivo", "efectivo_final",
		"efecto_tc", "deterioros", "partidas_no_monetarias", "costos_financieros",
	},
	databursatil.StatementPosition: {
		"currentassets", "currentliabilities", "cashandcashequivalents", "inventories",
		"tradeandothercurrentreceivables", "tradeandothercurrentpayables", "equity", "liabilities",
		"noncurrentliabilities", "equityattributabletoownersofparent", "noncontrollinginterests",
		"propertyplantandequipment", "intangibleassetsotherthangoodwill", "goodwill",
		"rightofuseassetsthatdonotmeetdefinitionofinvestmentproperty", "deferredtaxassets",
		"deferredtaxliabilities", "noncurrentassetsordisposalgroupsclassifiedasheldforsale",
		"retainedearnings", "issuedcapital", "otherreserves", "noncurrentleaseliabilities",
		"othernoncurrentfinancialliabilities", "noncurrentprovisionsforemployeebenefits",
	},
	databursatil.StatementIncome: {
		"revenue", "grossprofit", "profitlossfromoperatingactivities", "profitloss",
		"profitlossbeforetax", "costofsales", "distributioncosts", "administrativeexpense",
		"financecosts", "financeincome", "incometaxexpensecontinuingoperations",
		"profitlossattributabletoownersofparent", "basicearningslosspershare",
		"dilutedearningslosspershare", "otherincome",
		"shareofprofitlossofassociatesandjointventuresaccountedforusinge",
		"profitlossfromdiscontinuedoperations", "depreciacion",
	},
}

// StatementColumns returns the concepts stored for kind
func StatementColumns(kind databursatil.StatementKind) []string {
	return statementColumns[kind]
}
