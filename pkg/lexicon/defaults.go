package lexicon

// Default returns the built-in Czech grammar. It is used when no grammar
// file exists yet and is what `domov grammar export` prints.
func Default() Grammar {
	var g Grammar

	action := g.Ensure(CategoryAction)
	action.Add("on", "zapnout", "zapni", "zapní", "rozsviť", "zapny", "zapný", "rozsvit")
	action.Add("off", "vypni", "zhasni", "zhasnout", "vybni", "vybní", "vypní")
	action.Add("set", "nastav", "dej", "přepni na")
	action.Add("end", "konec", "skonči", "ukončit")
	action.Add("back", "zpět", "vrátit", "vrátit se", "nazpět")
	action.Add("cancel", "zruš", "nech být", "zahodit", "stop", "zahoď", "zrušit", "ukonči akci")
	action.Add("start", "start", "zapni poslech", "ok domove", "začínáme")

	boolean := g.Ensure(CategoryBoolResponse)
	boolean.Add("true", "ano", "jo", "chci", "určitě", "správně", "presně", "potvrzuji", "potvrzuju", "ok", "potvrdit")
	boolean.Add("false", "ne", "nechci", "vůbec", "zamítnout")

	target := g.Ensure(CategoryTarget)
	target.Add("light", "světlo")
	target.Add("climate", "topení", "teplotu")
	target.Add("switch", "zásuvku", "zásuvka")
	target.Add("scene", "scénu", "scéna")

	temp := g.Ensure(CategoryTemperature)
	temp.Add("15", "15", "patnáct")
	temp.Add("16", "16", "šestnáct")
	temp.Add("17", "17", "sedmnáct")
	temp.Add("18", "18", "osmnáct")
	temp.Add("19", "19", "devatenáct")
	temp.Add("20", "20", "dvacet")
	temp.Add("21", "21", "dvacet jedna", "jedna a dvacet", "jedenadvacet")
	temp.Add("22", "22", "dvacet dva", "dva a dvacet", "dvaadvacet")
	temp.Add("23", "23", "dvacet tři", "tři a dvacet", "třiadvacet")
	temp.Add("24", "24", "dvacet čtyři", "čtyři a dvacet", "čtyřiadvacet")
	temp.Add("25", "25", "dvacet pět", "pět a dvacet", "pětadvacet")
	temp.Add("26", "26", "dvacet šest", "šest a dvacet", "šestadvacet")
	temp.Add("27", "27", "dvacet sedm", "sedm a dvacet", "sedmadvacet")
	temp.Add("28", "28", "dvacet osm", "osm a dvacet", "osmadvacet")
	temp.Add("29", "29", "dvacet devět", "devět a dvacet", "devětadvacet")
	temp.Add("30", "30", "třicet")

	bright := g.Ensure(CategoryBrightness)
	bright.Add("25", "velmi nízký", "25")
	bright.Add("50", "nízký", "nízká", "málo", "tlumené", "50", "ztlum", "méně", "trochu", "padesát")
	bright.Add("100", "střední", "normální", "100")
	bright.Add("170", "vysoký", "hodně", "silný", "jasné", "170", "jasněji")
	bright.Add("255", "velmi vysoký", "plný", "maximum", "max", "naplno", "maximálně", "255", "co nejvíc")

	color := g.Ensure(CategoryColor)
	color.Add("red", "červená", "červené", "červený", "červeně", "červena", "červene")
	color.Add("green", "zelená", "zelené", "zelený", "zelene", "zeleně", "zelena")
	color.Add("blue", "modrá", "modré", "modrý", "modrou", "modravá", "modra", "modre", "modře")
	color.Add("white", "bílá", "bílé", "bílý", "bíla", "byla")
	color.Add("yellow", "žlutá", "žluté", "žlutý", "žlutě", "žlute", "žluta")
	color.Add("purple", "fialová", "fialova", "fialové", "fialový", "fialově", "fialove")
	color.Add("orange", "oranžová", "oranžově", "oranžove", "oranžové", "oranžový", "oranžova")
	color.Add("pink", "růžová", "růžové", "růžový", "světle růžová", "sytě růžová", "růžova")
	color.Add("cyan", "tyrkysová", "azurová", "cyanová", "do tyrkysova", "světle modrozelená")
	color.Add("warmwhite", "teplá bílá", "teplé světlo", "žlutobílá", "útulné světlo", "teplá barva", "žluto bílé", "žluto bílá")
	color.Add("coldwhite", "studená bílá", "chladná bílá", "modrobílá", "chladná barva", "modrobílé", "studené světlo")

	query := g.Ensure(CategoryQueryType)
	query.Add("temperature", "jaká je teplota", "jaka je teplota", "jak teplo je", "jaké teplo je", "jake teplo je", "kolik je stupňů")
	query.Add("state", "je zapnuto", "je vypnuto", "svítí", "je zapnuté", "funguje")
	query.Add("brightness", "jak silné", "jaký je jas", "intenzita", "jak moc svítí")
	query.Add("color", "jaká je barva", "jak svítí", "barevné světlo", "jakou má barvu")

	return g
}
