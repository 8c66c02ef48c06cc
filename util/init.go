package util

import (
	"github.com/carusyte/stockchart/global"
)

var log = global.Log
