package boards

// sectorAliases maps broad sector phrasings, as LLM topic extraction tends to
// produce them, to the exchange board names they usually correspond to.
// Order matters: earlier names are preferred. Kept short and practical; the
// resolver's substring heuristics cover everything else.
var sectorAliases = map[string][]string{
	"人工智能": {
		"AI应用",
		"AI算力",
		"AI服务器",
		"AI芯片",
		"AI语料",
		"AI手机",
		"AI PC",
		"ChatGPT概念",
		"AIGC概念",
	},
	"黄金": {
		"黄金概念",
		"黄金",
	},
	"光伏": {
		"光伏概念",
		"光伏设备",
		"TOPCon电池",
		"HJT电池",
		"HIT电池",
		"钙钛矿电池",
		"BC电池",
	},
	"芯片": {
		"芯片",
		"国产芯片",
		"先进封装",
		"存储芯片",
		"MCU芯片",
		"光刻机",
	},
	"军工": {
		"军工",
		"军民融合",
		"国防军工",
	},
	"机器人": {
		"机器人概念",
		"人形机器人",
		"工业母机",
	},
	"算力": {
		"AI算力",
		"算力租赁",
		"数据中心",
	},
	"新能源车": {
		"新能源汽车",
		"新能源车",
		"锂电池概念",
		"固态电池",
	},
}
