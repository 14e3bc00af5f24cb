package explorer

// widgetTemplates holds every HTML fragment served under /widgets.
const widgetTemplates = `
{{define "error"}}<p class="widget-error">{{.}}</p>{{end}}

{{define "mempool"}}
<div class="widget" id="mempool-widget">
  <h3>Mempool</h3>
  <dl>
    <dt>Transactions</dt><dd>{{comma .TxCount}}</dd>
    <dt>Size</dt><dd>{{bytes .Bytes}}</dd>
    <dt>Memory usage</dt><dd>{{bytes .Usage}}</dd>
    <dt>Min fee</dt><dd>{{feerate .MinFeeSatPerVB}}</dd>
    {{if .FullRBF}}<dt>Full RBF</dt><dd>enabled</dd>{{end}}
    {{if .UnbroadcastCount}}<dt>Unbroadcast</dt><dd>{{comma .UnbroadcastCount}}</dd>{{end}}
  </dl>
</div>
{{end}}

{{define "network"}}
<div class="widget" id="network-widget">
  <h3>Network</h3>
  <dl>
    <dt>Height</dt><dd>{{comma .Height}}</dd>
    <dt>Difficulty</dt><dd>{{difficulty .Difficulty}}</dd>
    <dt>Hashrate</dt><dd>{{hashrate .HashrateGHPS}}</dd>
    <dt>Avg block interval</dt><dd>{{duration .AvgBlockIntervalSec}}</dd>
    <dt>Retarget</dt><dd>{{comma .BlocksToAdjust}} blocks ({{pct .EstDiffChangePct}} est.)</dd>
    <dt>Subsidy</dt><dd>{{btc .CurrentSubsidyBTC}} BTC</dd>
    <dt>New BTC/day</dt><dd>{{btc .EstNewBTCPerDay}}</dd>
    <dt>Circulating</dt><dd>{{btc .EstCirculatingBTC}} BTC</dd>
    <dt>Tip</dt><dd>{{ago .TipTime}}</dd>
  </dl>
</div>
{{end}}

{{define "block"}}
<div class="widget" id="block-widget" data-hash="{{.Hash}}">
  <h3>Block {{comma .Height}}</h3>
  <p class="hash">{{.Hash}}</p>
  <dl>
    <dt>Mined</dt><dd>{{utc .Time}} ({{ago .Time}})</dd>
    <dt>Transactions</dt><dd>{{comma .NTx}}</dd>
    <dt>Size</dt><dd>{{bytes .Size}}</dd>
    {{if .Weight}}<dt>Weight</dt><dd>{{comma .Weight}} WU</dd>{{end}}
  </dl>
  <nav class="block-nav">
    {{if .Prev}}<a href="#" data-block="{{.Prev}}">&larr; prev</a>{{end}}
    {{if .Next}}<a href="#" data-block="{{.Next}}">next &rarr;</a>{{end}}
  </nav>
  <ol class="txids">
    {{range .TxIDs}}<li><a href="#" data-tx="{{.}}">{{short .}}</a></li>{{end}}
  </ol>
  {{if .Page.More}}
  <a href="#" class="more" data-block="{{.Hash}}" data-offset="{{.Page.Offset}}" data-limit="{{.Page.Limit}}">
    more ({{.Page.Total}} total)
  </a>
  {{end}}
</div>
{{end}}

{{define "tx"}}
<div class="widget" id="tx-widget">
  <h3>Transaction</h3>
  <p class="hash">{{.TxID}}</p>
  {{if .BackBlock}}<a href="#" class="back" data-block="{{.BackBlock}}">&larr; back to block</a>{{end}}
  <dl>
    {{if .IsCoinbase}}<dt>Coinbase</dt><dd>yes</dd>{{end}}
    <dt>Confirmations</dt><dd>{{comma .Confirmations}}</dd>
    <dt>Size / vsize</dt><dd>{{comma .Size}} / {{comma .VSize}} vB</dd>
    {{if .Weight}}<dt>Weight</dt><dd>{{comma .Weight}} WU</dd>{{end}}
    <dt>Output total</dt><dd>{{btc .OutputsTotalBTC}} BTC</dd>
    {{if .InputsTotalBTC}}<dt>Input total</dt><dd>{{btc (deref .InputsTotalBTC)}} BTC</dd>{{end}}
    {{if .FeeBTC}}<dt>Fee</dt><dd>{{btc (deref .FeeBTC)}} BTC{{if .FeeRateSatVB}} ({{feerate (deref .FeeRateSatVB)}}){{end}}</dd>{{end}}
  </dl>
  <h4>Inputs ({{.TotalInputs}})</h4>
  <ul class="inputs">
    {{range .Inputs}}<li>{{short .TxID}}:{{.Vout}} — {{btc .ValueBTC}} BTC — {{.Address}}</li>{{end}}
    {{if .MoreInputs}}<li class="muted">… {{.TotalInputs}} inputs total, {{.ResolvedInputs}} resolved</li>{{end}}
  </ul>
  <h4>Outputs ({{len .Vout}})</h4>
  <ul class="outputs">
    {{range .Vout}}<li>#{{.N}} — {{btc .Value}} BTC{{with .ScriptPubKey.Address}} — {{.}}{{end}}</li>{{end}}
  </ul>
</div>
{{end}}

{{define "addr"}}
<div class="widget" id="addr-widget">
  <h3>Address</h3>
  <p class="hash">{{.Address}}</p>
  <dl>
    <dt>Balance</dt><dd>{{btc .TotalBTC}} BTC</dd>
    {{if .UTXOs}}<dt>UTXOs</dt><dd>{{.UTXOCount}}</dd>{{end}}
  </dl>
  {{if .UTXOs}}
  <ul class="utxos">
    {{range .UTXOs}}<li>{{short .TxID}}:{{.Vout}} — {{btc .AmountBTC}} BTC{{if not .Height}} <span class="muted">(mempool)</span>{{end}}</li>{{end}}
  </ul>
  {{end}}
  {{with .History}}
  <h4>History ({{.Page.Total}})</h4>
  <ul class="history">
    {{range .Items}}<li><a href="#" data-tx="{{.TxID}}">{{short .TxID}}</a>{{if le .Height 0}} <span class="muted">unconfirmed</span>{{else}} @ {{.Height}}{{end}}</li>{{end}}
  </ul>
  {{if .Page.More}}
  <a href="#" class="more" data-addr="{{.Address}}" data-offset="{{.Page.Offset}}" data-limit="{{.Page.Limit}}">more</a>
  {{end}}
  {{end}}
</div>
{{end}}
`
